package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/castro/internal/shared"
	"github.com/desertthunder/castro/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the podcast library.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/castro-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	model := ui.NewModel(ctx, lib.podcasts, lib.episodes, lib.engine, lib.player, lib.tracker, lib.changes)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
