package services

import (
	"context"
	"io"

	"github.com/desertthunder/castro/internal/models"
)

// SyncService talks to the podcast sync backend.
type SyncService interface {
	// CreateUser registers a new anonymous user and returns its access key.
	CreateUser(ctx context.Context) (string, error)

	// CreateDevice registers this device under the given user access key and
	// returns a device-scoped access token.
	CreateDevice(ctx context.Context, userAccessKey, deviceName string) (string, error)

	// FetchSubscriptions retrieves the remote subscription list for the
	// authenticated device.
	FetchSubscriptions(ctx context.Context) ([]RemoteSubscription, error)
}

// FeedService fetches podcast feeds and episode media from the open web.
type FeedService interface {
	// ImportPodcastFromURL fetches and parses the feed at url, returning the
	// podcast and its episodes. Neither is persisted.
	ImportPodcastFromURL(ctx context.Context, url string) (*models.Podcast, []models.Episode, error)

	// FetchMediaStream opens the audio stream for an episode. The returned
	// size is -1 when the server did not declare a content length. The
	// caller owns the ReadCloser.
	FetchMediaStream(ctx context.Context, episode *models.Episode) (io.ReadCloser, int64, error)
}

// RemoteSubscription is one feed the sync backend knows about for this user.
type RemoteSubscription struct {
	FeedURL string `json:"feed_url"`
	Title   string `json:"title"`
}
