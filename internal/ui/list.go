package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/castro/internal/models"
)

var (
	_ list.Item = podcastItem{}
	_ list.Item = episodeItem{}
)

// podcastItem wraps [models.Podcast] to implement [list.Item].
type podcastItem struct {
	podcast models.Podcast
}

func (i podcastItem) FilterValue() string { return i.podcast.Title }
func (i podcastItem) Title() string       { return i.podcast.Title }
func (i podcastItem) Description() string {
	if i.podcast.Description != "" {
		return i.podcast.Description
	}
	return i.podcast.FeedURL
}

// episodeItem wraps [models.EpisodeWithProgress] to implement [list.Item].
// fraction is the in-flight download fraction, negative when not downloading.
type episodeItem struct {
	episode  models.EpisodeWithProgress
	fraction float64
}

func (i episodeItem) FilterValue() string { return i.episode.Episode.Title }
func (i episodeItem) Title() string       { return i.episode.Episode.Title }
func (i episodeItem) Description() string {
	desc := formatDuration(i.episode.Episode.DurationSeconds)

	switch {
	case i.fraction >= 0:
		desc = fmt.Sprintf("%s • downloading %.0f%%", desc, i.fraction*100)
	case i.episode.Episode.DownloadState == models.DownloadStateDownloaded:
		desc = fmt.Sprintf("%s • downloaded", desc)
	case !i.episode.Episode.DownloadState.IsTerminal():
		// Persisted mid-transfer state from another process, no live progress.
		desc = fmt.Sprintf("%s • downloading", desc)
	}

	if i.episode.Progress.Completed {
		desc = fmt.Sprintf("%s • played", desc)
	} else if i.episode.Progress.ListenedSeconds > 0 {
		desc = fmt.Sprintf("%s • at %s", desc, formatDuration(i.episode.Progress.ListenedSeconds))
	}
	return desc
}

func formatDuration(seconds int64) string {
	if seconds <= 0 {
		return "--:--"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
