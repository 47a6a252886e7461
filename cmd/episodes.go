package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
	"github.com/urfave/cli/v3"
)

// EpisodesList prints one podcast's episodes with listen progress.
func (r *Runner) EpisodesList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	podcastID := cmd.Int64("podcast")
	if _, err := lib.podcasts.Get(podcastID); err != nil {
		return err
	}

	episodes, err := lib.episodes.ListForPodcast(podcastID)
	if err != nil {
		return fmt.Errorf("failed to list episodes: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(episodes, true)
	}
	for _, ep := range episodes {
		r.writePlainln("%4d  %s%s", ep.Episode.ID, ep.Episode.Title, episodeMarkers(ep))
	}
	return nil
}

// EpisodesLatest prints the newest episodes across the library.
func (r *Runner) EpisodesLatest(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	episodes, err := lib.episodes.ListLatest(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list latest episodes: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(episodes, true)
	}
	for _, ep := range episodes {
		r.writePlainln("%4d  %-30s  %s", ep.Episode.ID, ep.Podcast.Title, ep.Episode.Title)
	}
	return nil
}

// EpisodesHistory prints episodes that have saved listen progress.
func (r *Runner) EpisodesHistory(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	episodes, err := lib.episodes.ListListenHistory()
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(episodes, true)
	}
	for _, ep := range episodes {
		r.writePlainln("%4d  %-30s  %s", ep.Episode.ID, ep.Podcast.Title, ep.Episode.Title)
	}
	return nil
}

// EpisodesDownload downloads one episode's media, blocking until the detached
// transfer reports its outcome.
func (r *Runner) EpisodesDownload(ctx context.Context, cmd *cli.Command) error {
	id, err := episodeIDArg(cmd)
	if err != nil {
		return err
	}

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	sub := lib.changes.Subscribe()
	defer lib.changes.Unsubscribe(sub)

	requestID, err := lib.engine.DownloadEpisode(ctx, id)
	if err != nil {
		return err
	}
	r.logger.Info("download started", "episode", id, "request", requestID)

	if _, err := r.awaitTerminal(sub, requestID, bus.SignalDownloadDone, bus.SignalDownloadError); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	episode, err := lib.episodes.Get(id)
	if err != nil {
		return err
	}
	return r.writePlainln("downloaded to %s", episode.ContentLocalPath)
}

// EpisodesProgress prints an episode's saved listen position.
func (r *Runner) EpisodesProgress(ctx context.Context, cmd *cli.Command) error {
	id, err := episodeIDArg(cmd)
	if err != nil {
		return err
	}

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	if _, err := lib.episodes.Get(id); err != nil {
		return err
	}
	progress, err := lib.episodes.GetProgress(id)
	if err != nil {
		return err
	}
	return r.writeJSON(progress, true)
}

func episodeIDArg(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: episode id required", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: episode id must be a number", shared.ErrInvalidArgument)
	}
	return id, nil
}

func episodeMarkers(ep models.EpisodeWithProgress) string {
	markers := ""
	if ep.Episode.DownloadState == models.DownloadStateDownloaded {
		markers += " [downloaded]"
	} else if !ep.Episode.DownloadState.IsTerminal() {
		markers += " [downloading]"
	}
	if ep.Progress.Completed {
		markers += " [played]"
	} else if ep.Progress.ListenedSeconds > 0 {
		markers += fmt.Sprintf(" [at %ds]", ep.Progress.ListenedSeconds)
	}
	return markers
}
