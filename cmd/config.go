package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/castro/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigGet prints the active configuration as JSON.
func (r *Runner) ConfigGet(ctx context.Context, cmd *cli.Command) error {
	current := r.store.Read()
	return r.writeJSON(current, cmd.Bool("pretty"))
}

// ConfigSet updates a single dotted configuration key and persists the file.
func (r *Runner) ConfigSet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	value := cmd.StringArg("value")
	if key == "" || value == "" {
		return fmt.Errorf("%w: usage: config set <key> <value>", shared.ErrMissingArgument)
	}

	next := r.store.Read()
	switch key {
	case "user.device_name":
		next.User.DeviceName = value
	case "playback.volume":
		volume, err := strconv.ParseFloat(value, 64)
		if err != nil || volume < 0 || volume > 1 {
			return fmt.Errorf("%w: volume must be a number between 0.0 and 1.0", shared.ErrInvalidArgument)
		}
		next.Playback.Volume = volume
	case "database.path":
		next.Database.Path = value
	case "server.sync_url":
		next.Server.SyncURL = value
	case "server.host":
		next.Server.Host = value
	case "server.port":
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: port must be a number between 1 and 65535", shared.ErrInvalidArgument)
		}
		next.Server.Port = port
	case "storage.download_dir":
		next.Storage.DownloadDir = value
	default:
		return fmt.Errorf("%w: unknown config key %q", shared.ErrInvalidArgument, key)
	}

	if err := r.store.Update(next); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	*r.config = next

	return r.writePlainln("%s = %s", key, value)
}
