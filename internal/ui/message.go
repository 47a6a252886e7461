package ui

import (
	"time"

	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/models"
)

// podcastsLoadedMsg carries the podcast list for the library view.
type podcastsLoadedMsg struct {
	podcasts []models.Podcast
	err      error
}

// episodesLoadedMsg carries one podcast's episodes for the episode view.
type episodesLoadedMsg struct {
	podcast  models.Podcast
	episodes []models.EpisodeWithProgress
	err      error
}

// notificationMsg wraps one change-bus notification.
type notificationMsg bus.Notification

// busClosedMsg signals that the change bus shut down underneath the TUI.
type busClosedMsg struct{}

// tickMsg drives the transport line and download fraction refresh.
type tickMsg time.Time
