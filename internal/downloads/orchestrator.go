package downloads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/services"
	"github.com/desertthunder/castro/internal/shared"
	"golang.org/x/time/rate"
)

// copyChunkSize is the transfer buffer size.
const copyChunkSize = 32 * 1024

// EpisodeStore is the slice of the persistence layer the orchestrator needs.
type EpisodeStore interface {
	Get(id int64) (*models.Episode, error)
	SetDownloadState(id int64, state models.DownloadState, localPath string) error
}

// Orchestrator runs one episode download to completion: stream to a temp
// file, publish progress into the tracker, then atomically promote the file
// and the persisted download state.
//
// The orchestrator knows nothing about the change bus; publishing events on
// completion is the caller's job.
type Orchestrator struct {
	episodes    EpisodeStore
	feeds       services.FeedService
	tracker     *Tracker
	downloadDir string
	logger      *log.Logger
}

// NewOrchestrator creates a download orchestrator.
func NewOrchestrator(episodes EpisodeStore, feeds services.FeedService, tracker *Tracker, downloadDir string, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		episodes:    episodes,
		feeds:       feeds,
		tracker:     tracker,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// Run downloads one episode. It blocks until the transfer finishes or fails;
// callers wanting detachment spawn it on their own goroutine.
//
// On any failure the episode's persisted state is rolled back to
// not_downloaded and the tracker entry is removed, so an episode is never
// left stuck at "downloading".
func (o *Orchestrator) Run(ctx context.Context, episodeID int64) error {
	episode, err := o.episodes.Get(episodeID)
	if err != nil {
		return err
	}
	if episode.DownloadState == models.DownloadStateDownloaded {
		return fmt.Errorf("%w: episode %d is already downloaded", shared.ErrInvalidInput, episodeID)
	}

	entry, err := o.tracker.Begin(episodeID)
	if err != nil {
		return err
	}
	defer o.tracker.End(episodeID)

	if err := o.episodes.SetDownloadState(episodeID, models.DownloadStateDownloading, ""); err != nil {
		return err
	}

	localPath, err := o.transfer(ctx, episode, entry)
	if err != nil {
		o.rollback(episodeID)
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	if err := o.episodes.SetDownloadState(episodeID, models.DownloadStateDownloaded, localPath); err != nil {
		os.Remove(localPath)
		o.rollback(episodeID)
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	o.logger.Info("episode downloaded", "episode", episodeID, "path", localPath)
	return nil
}

// Downloading reports whether the episode has an in-flight transfer.
func (o *Orchestrator) Downloading(episodeID int64) bool {
	_, ok := o.tracker.Progress(episodeID)
	return ok
}

// transfer streams the media to a temp file and renames it into place.
func (o *Orchestrator) transfer(ctx context.Context, episode *models.Episode, entry *Entry) (string, error) {
	stream, total, err := o.feeds.FetchMediaStream(ctx, episode)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	finalPath := filepath.Join(o.downloadDir, mediaFileName(episode))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmpPath := filepath.Join(filepath.Dir(finalPath), ".download-"+shared.GenerateID())
	file, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	// Throttle tracker writes so hot transfers do not spend their time
	// hammering the progress lock; the final update always lands.
	limiter := rate.NewLimiter(rate.Limit(20), 1)

	var received int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return "", err
		}

		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				file.Close()
				os.Remove(tmpPath)
				return "", fmt.Errorf("failed to write media: %w", writeErr)
			}
			received += int64(n)
			if limiter.Allow() {
				entry.update(received, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("failed to read media stream: %w", readErr)
		}
	}

	entry.update(received, received)

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to sync media file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close media file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to promote media file: %w", err)
	}

	return finalPath, nil
}

// rollback restores the pre-download persisted state. Failure here is logged
// and swallowed: the original transfer error is the one the caller needs.
func (o *Orchestrator) rollback(episodeID int64) {
	if err := o.episodes.SetDownloadState(episodeID, models.DownloadStateNone, ""); err != nil {
		o.logger.Error("failed to roll back download state", "episode", episodeID, "err", err)
	}
}

// mediaFileName derives the on-disk path for an episode's media, relative
// to the download directory. Media is grouped per podcast.
func mediaFileName(episode *models.Episode) string {
	ext := ".mp3"
	if idx := strings.LastIndex(episode.AudioURL, "."); idx != -1 {
		candidate := episode.AudioURL[idx:]
		if len(candidate) <= 5 && !strings.ContainsAny(candidate, "/?&") {
			ext = candidate
		}
	}
	return filepath.Join(fmt.Sprintf("%d", episode.PodcastID), fmt.Sprintf("%d%s", episode.ID, ext))
}
