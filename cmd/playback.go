package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/desertthunder/castro/internal/player"
	"github.com/desertthunder/castro/internal/shared"
	"github.com/urfave/cli/v3"
)

// startGrace bounds how long the play command waits for the decode chain to
// come up before giving up.
const startGrace = 30 * time.Second

// Play plays one episode in the foreground, resuming from saved progress.
// Without an id argument it resumes the most recently played unfinished
// episode. The command returns when the episode finishes or on interrupt.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if !player.AudioAvailable {
		return fmt.Errorf("%w: no audio output on this platform", shared.ErrServiceUnavailable)
	}

	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	var id int64
	if cmd.StringArg("id") == "" {
		last, err := lib.episodes.FindLastPlayed()
		if err != nil {
			return err
		}
		if last == nil {
			return fmt.Errorf("%w: nothing to resume, pass an episode id", shared.ErrMissingArgument)
		}
		id = last.Episode.ID
	} else if id, err = episodeIDArg(cmd); err != nil {
		return err
	}

	episode, err := lib.episodes.Get(id)
	if err != nil {
		return err
	}
	if err := lib.engine.PlayEpisode(id); err != nil {
		return err
	}
	r.writePlainln("playing %q (ctrl+c to stop)", episode.Title)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !waitForState(ctx, lib.player, player.StatePlaying, startGrace) {
		return fmt.Errorf("%w: playback did not start", shared.ErrDecodeInit)
	}

	// Block until the chain drains or the user interrupts.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			lib.player.Stop()
			return nil
		case <-ticker.C:
			if lib.player.Status().State == player.StateStopped {
				return nil
			}
		}
	}
}

// Volume sets and persists the playback volume.
func (r *Runner) Volume(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("level")
	if raw == "" {
		return r.writePlainln("volume: %.0f%%", r.config.Playback.Volume*100)
	}

	volume, err := strconv.ParseFloat(raw, 64)
	if err != nil || volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume must be a number between 0.0 and 1.0", shared.ErrInvalidArgument)
	}

	next := r.store.Read()
	next.Playback.Volume = volume
	if err := r.store.Update(next); err != nil {
		return fmt.Errorf("failed to persist volume: %w", err)
	}
	*r.config = next

	return r.writePlainln("volume set to %.0f%%", volume*100)
}

func waitForState(ctx context.Context, p *player.Player, want player.State, timeout time.Duration) bool {
	deadline := time.After(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			return false
		case <-ticker.C:
			if p.Status().State == want {
				return true
			}
		}
	}
}
