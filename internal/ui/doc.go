// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-level library workflow:
//  1. [PodcastListView] : Browse subscribed podcasts
//  2. [EpisodeListView] : Browse a podcast's episodes, play and download them
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Change-bus notifications flow in through a subscription wrapped in tea commands,
// so downloads and syncs started here (or from another process surface) refresh
// the visible lists as they finish. A one-second tick refreshes the transport
// line and in-flight download fractions.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) plus transport
// keys: space pause/resume, ←/→ skip, +/- volume, d download, s sync.
package ui
