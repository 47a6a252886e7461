package models

import "time"

// Podcast represents a subscribed podcast feed.
type Podcast struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	FeedURL     string    `json:"feed_url"`
	ImageURL    string    `json:"image_url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Episode represents a single podcast episode.
type Episode struct {
	ID               int64         `json:"id"`
	PodcastID        int64         `json:"podcast_id"`
	GUID             string        `json:"guid"`
	Title            string        `json:"title"`
	AudioURL         string        `json:"audio_url"`
	DurationSeconds  int64         `json:"duration_seconds"` // 0 when the feed did not declare a duration
	DownloadState    DownloadState `json:"download_state"`
	ContentLocalPath string        `json:"content_local_path"` // empty unless DownloadState is Downloaded
	PublishedAt      time.Time     `json:"published_at"`
}

// EpisodeProgress tracks playback progress for one episode.
type EpisodeProgress struct {
	EpisodeID       int64     `json:"episode_id"`
	ListenedSeconds int64     `json:"listened_seconds"`
	Completed       bool      `json:"completed"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EpisodeWithPodcast pairs an episode with its podcast metadata.
type EpisodeWithPodcast struct {
	Episode Episode `json:"episode"`
	Podcast Podcast `json:"podcast"`
}

// EpisodeWithProgress pairs an episode with its playback progress.
type EpisodeWithProgress struct {
	Episode  Episode         `json:"episode"`
	Progress EpisodeProgress `json:"progress"`
}
