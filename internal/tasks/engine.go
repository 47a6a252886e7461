package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/services"
	"github.com/desertthunder/castro/internal/shared"
)

// PodcastStore is the podcast persistence the engine depends on.
type PodcastStore interface {
	Create(podcast *models.Podcast) error
	GetByFeedURL(feedURL string) (*models.Podcast, error)
}

// EpisodeStore is the episode persistence the engine depends on.
type EpisodeStore interface {
	Create(episode *models.Episode) error
	Get(id int64) (*models.Episode, error)
	GetProgress(episodeID int64) (*models.EpisodeProgress, error)
}

// Downloader runs one episode download to completion and reports which
// episodes are currently in flight.
type Downloader interface {
	Run(ctx context.Context, episodeID int64) error
	Downloading(episodeID int64) bool
}

// Playback is the transport surface the engine drives.
type Playback interface {
	PlayEpisode(episode *models.Episode, startOffset time.Duration) error
	Play()
	Pause()
	Stop()
	SkipForwards() error
	SkipBackwards() error
}

// Publisher fans notifications out to subscribers.
type Publisher interface {
	Publish(n bus.Notification) error
	InvalidateCache(change bus.EntityChange) error
}

// Engine orchestrates the podcast library operations. Safe for concurrent use.
type Engine struct {
	podcasts  PodcastStore
	episodes  EpisodeStore
	feeds     services.FeedService
	remote    services.SyncService
	downloads Downloader
	player    Playback
	bus       Publisher
	logger    *log.Logger

	wg sync.WaitGroup
}

// NewEngine creates an Engine with the provided collaborators.
func NewEngine(podcasts PodcastStore, episodes EpisodeStore, feeds services.FeedService, remote services.SyncService, downloads Downloader, player Playback, publisher Publisher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		podcasts:  podcasts,
		episodes:  episodes,
		feeds:     feeds,
		remote:    remote,
		downloads: downloads,
		player:    player,
		bus:       publisher,
		logger:    logger,
	}
}

// Wait blocks until all detached operations have finished. Used during
// shutdown so terminal notifications are not lost.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// SyncPodcasts fetches the remote subscription list, imports any feed not
// yet in the library, and re-fetches subscribed feeds so newly published
// episodes land. Returns immediately with a request id; the terminal outcome
// arrives on the bus.
func (e *Engine) SyncPodcasts(ctx context.Context) string {
	requestID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "request", requestID)

	e.spawn(func() {
		subs, err := e.remote.FetchSubscriptions(ctx)
		if err != nil {
			logger.Error("failed to fetch subscriptions", "err", err)
			e.publish(syncErrorNotification(requestID, err))
			return
		}

		imported := 0
		var synced []int64
		var firstErr error
		for _, sub := range subs {
			existing, err := e.podcasts.GetByFeedURL(sub.FeedURL)
			if err == nil {
				if err := e.refreshFeed(ctx, existing); err != nil {
					logger.Warn("failed to refresh feed during sync", "feed", sub.FeedURL, "err", err)
					continue
				}
				synced = append(synced, existing.ID)
				continue
			}
			if !errors.Is(err, shared.ErrPodcastNotFound) {
				firstErr = err
				break
			}

			podcast, _, err := e.importFeed(ctx, sub.FeedURL)
			if err != nil {
				logger.Warn("failed to import feed during sync", "feed", sub.FeedURL, "err", err)
				continue
			}
			synced = append(synced, podcast.ID)
			imported++
		}

		if firstErr != nil {
			logger.Error("sync aborted", "err", firstErr)
			e.publish(syncErrorNotification(requestID, firstErr))
			return
		}

		if len(synced) > 0 {
			e.invalidate(bus.AllPodcasts())
			for _, id := range synced {
				e.invalidate(bus.PodcastChange(id))
				e.invalidate(bus.PodcastEpisodesChange(id))
			}
		}
		logger.Info("sync finished", "imported", imported, "total", len(subs))
		e.publish(syncDoneNotification(requestID, imported, len(subs)))
	})

	return requestID
}

// ImportPodcast fetches, parses, and persists the feed at url. Returns
// immediately with a request id; the terminal outcome arrives on the bus.
// Importing a feed already in the library is an error.
func (e *Engine) ImportPodcast(ctx context.Context, url string) string {
	requestID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "request", requestID)

	e.spawn(func() {
		if existing, err := e.podcasts.GetByFeedURL(url); err == nil {
			err = fmt.Errorf("%w: already subscribed to %q", shared.ErrInvalidInput, existing.Title)
			e.publish(importErrorNotification(requestID, err))
			return
		} else if !errors.Is(err, shared.ErrPodcastNotFound) {
			e.publish(importErrorNotification(requestID, err))
			return
		}

		podcast, episodes, err := e.importFeed(ctx, url)
		if err != nil {
			logger.Error("failed to import feed", "feed", url, "err", err)
			e.publish(importErrorNotification(requestID, err))
			return
		}

		e.invalidate(bus.AllPodcasts())
		logger.Info("imported podcast", "podcast", podcast.ID, "episodes", episodes)
		e.publish(importDoneNotification(requestID, podcast.ID, podcast.Title, episodes))
	})

	return requestID
}

// DownloadEpisode starts a detached download of the episode's media. The
// duplicate check is synchronous: a second request for an in-flight episode
// is rejected before any goroutine is spawned, so the caller keeps the one
// request id already tied to the transfer's notifications. On success it
// returns immediately with a request id; the terminal outcome arrives on
// the bus.
func (e *Engine) DownloadEpisode(ctx context.Context, episodeID int64) (string, error) {
	if e.downloads.Downloading(episodeID) {
		return "", fmt.Errorf("%w: episode %d", shared.ErrAlreadyDownloading, episodeID)
	}

	requestID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "request", requestID, "episode", episodeID)

	e.spawn(func() {
		if err := e.downloads.Run(ctx, episodeID); err != nil {
			logger.Error("download failed", "err", err)
			e.publish(downloadErrorNotification(requestID, err))
			return
		}

		e.invalidate(bus.EpisodeChange(episodeID))
		logger.Info("download finished")
		e.publish(downloadDoneNotification(requestID, episodeID))
	})

	return requestID, nil
}

// PlayEpisode resumes the episode from its saved position, or from the start
// when it was previously completed. The episode lookup is synchronous; the
// playback start itself is detached because it may open a network stream.
func (e *Engine) PlayEpisode(episodeID int64) error {
	episode, err := e.episodes.Get(episodeID)
	if err != nil {
		return err
	}

	progress, err := e.episodes.GetProgress(episodeID)
	if err != nil {
		return err
	}

	var offset time.Duration
	if !progress.Completed {
		offset = time.Duration(progress.ListenedSeconds) * time.Second
	}

	e.spawn(func() {
		if err := e.player.PlayEpisode(episode, offset); err != nil {
			e.logger.Error("failed to start playback", "episode", episodeID, "err", err)
		}
	})

	return nil
}

// PlayerAction dispatches a parameterless transport command by name.
func (e *Engine) PlayerAction(action string) error {
	switch action {
	case "play":
		e.player.Play()
	case "pause":
		e.player.Pause()
	case "stop":
		e.player.Stop()
	case "skip_forwards":
		return e.player.SkipForwards()
	case "skip_backwards":
		return e.player.SkipBackwards()
	default:
		return fmt.Errorf("%w: unknown player action %q", shared.ErrInvalidArgument, action)
	}
	return nil
}

// importFeed fetches and persists one feed. Returns the stored podcast and
// the number of episodes persisted.
// refreshFeed re-fetches a subscribed feed and stores the episodes that are
// not yet in the library. The insert is idempotent on (podcast, guid), so
// episodes already present are left untouched.
func (e *Engine) refreshFeed(ctx context.Context, podcast *models.Podcast) error {
	_, episodes, err := e.feeds.ImportPodcastFromURL(ctx, podcast.FeedURL)
	if err != nil {
		return err
	}

	for i := range episodes {
		episodes[i].PodcastID = podcast.ID
		if err := e.episodes.Create(&episodes[i]); err != nil {
			return fmt.Errorf("failed to store episode %q: %w", episodes[i].Title, err)
		}
	}
	return nil
}

func (e *Engine) importFeed(ctx context.Context, url string) (*models.Podcast, int, error) {
	podcast, episodes, err := e.feeds.ImportPodcastFromURL(ctx, url)
	if err != nil {
		return nil, 0, err
	}

	if err := e.podcasts.Create(podcast); err != nil {
		return nil, 0, err
	}

	stored := 0
	for i := range episodes {
		episodes[i].PodcastID = podcast.ID
		if err := e.episodes.Create(&episodes[i]); err != nil {
			return nil, 0, fmt.Errorf("failed to store episode %q: %w", episodes[i].Title, err)
		}
		stored++
	}

	return podcast, stored, nil
}

func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// publish sends a terminal notification. A bus with no subscribers is normal
// for CLI one-shots, so that error is only logged at debug.
func (e *Engine) publish(n bus.Notification) {
	if err := e.bus.Publish(n); err != nil {
		if errors.Is(err, shared.ErrNoSubscribers) {
			e.logger.Debug("notification had no subscribers", "signal", n.Signal)
			return
		}
		e.logger.Error("failed to publish notification", "signal", n.Signal, "err", err)
	}
}

func (e *Engine) invalidate(change bus.EntityChange) {
	if err := e.bus.InvalidateCache(change); err != nil && !errors.Is(err, shared.ErrNoSubscribers) {
		e.logger.Error("failed to publish invalidation", "change", change, "err", err)
	}
}
