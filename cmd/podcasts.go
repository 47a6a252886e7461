package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/shared"
	"github.com/desertthunder/castro/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PodcastsList prints the subscription library.
func (r *Runner) PodcastsList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	podcasts, err := lib.podcasts.List()
	if err != nil {
		return fmt.Errorf("failed to list podcasts: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(podcasts, true)
	}

	if len(podcasts) == 0 {
		return r.writePlainln("no subscriptions; use 'castro podcasts import <url>' or 'castro podcasts sync'")
	}
	for _, p := range podcasts {
		r.writePlainln("%4d  %s", p.ID, p.Title)
	}
	return nil
}

// PodcastsSync pulls the remote subscription list and imports new feeds,
// blocking until the detached sync reports its outcome.
func (r *Runner) PodcastsSync(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	sub := lib.changes.Subscribe()
	defer lib.changes.Unsubscribe(sub)

	requestID := lib.engine.SyncPodcasts(ctx)
	r.logger.Info("sync started", "request", requestID)

	payload, err := r.awaitTerminal(sub, requestID, bus.SignalSyncDone, bus.SignalSyncError)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	result := payload.(tasks.SyncResult)
	return r.writePlainln("synced %d feeds, %d newly imported", result.Total, result.Imported)
}

// PodcastsRemove unsubscribes from a podcast. Episode rows and progress go
// with it via foreign key cascade; downloaded files stay on disk.
func (r *Runner) PodcastsRemove(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	if raw == "" {
		return fmt.Errorf("%w: usage: podcasts remove <id>", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: podcast id must be a number", shared.ErrInvalidArgument)
	}

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	podcast, err := lib.podcasts.Get(id)
	if err != nil {
		return err
	}
	if err := lib.podcasts.Delete(id); err != nil {
		return err
	}
	if err := lib.changes.InvalidateCache(bus.AllPodcasts()); err != nil && !errors.Is(err, shared.ErrNoSubscribers) {
		r.logger.Warn("failed to publish change", "error", err)
	}

	return r.writePlainln("removed %q", podcast.Title)
}

// PodcastsImport subscribes to one feed by URL, blocking until the detached
// import reports its outcome.
func (r *Runner) PodcastsImport(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: usage: podcasts import <url>", shared.ErrMissingArgument)
	}

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	sub := lib.changes.Subscribe()
	defer lib.changes.Unsubscribe(sub)

	requestID := lib.engine.ImportPodcast(ctx, url)

	payload, err := r.awaitTerminal(sub, requestID, bus.SignalImportDone, bus.SignalImportError)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	result := payload.(tasks.ImportResult)
	return r.writePlainln("imported %q (%d episodes)", result.Title, result.Episodes)
}
