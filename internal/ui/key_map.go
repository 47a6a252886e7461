package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	pause    key.Binding
	forward  key.Binding
	backward key.Binding
	volUp    key.Binding
	volDown  key.Binding
	download key.Binding
	sync     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		pause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
		forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "skip ahead")),
		backward: key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "skip back")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.pause, k.backward, k.forward},
		{k.volDown, k.volUp, k.download, k.sync, k.quit},
	}
}
