package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/castro/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup initializes the database, creates the config file if missing, and
// registers this device with the sync backend.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, continuing with defaults", "error", err)
		} else if loaded, err := shared.LoadConfig(r.configPath); err == nil {
			*r.config = *loaded
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.writePlainln("database ready: %s", r.config.Database.Path)

	if cmd.Bool("skip-register") {
		return nil
	}
	return r.registerDevice(ctx)
}

// registerDevice creates a sync backend user and device and persists the
// returned credentials. A configured access token means we already
// registered.
func (r *Runner) registerDevice(ctx context.Context) error {
	if r.config.Server.SyncURL == "" {
		r.logger.Info("no sync backend configured, skipping registration")
		return nil
	}
	if r.config.User.AccessToken != "" {
		r.logger.Info("device already registered")
		return nil
	}

	accessKey := r.config.User.AccessKey
	if accessKey == "" {
		var err error
		if accessKey, err = r.remote.CreateUser(ctx); err != nil {
			return fmt.Errorf("failed to create sync user: %w", err)
		}
		r.logger.Info("created sync user")
	}

	deviceName := r.config.User.DeviceName
	if deviceName == "" {
		if host, err := os.Hostname(); err == nil {
			deviceName = host
		} else {
			deviceName = "castro"
		}
	}

	token, err := r.remote.CreateDevice(ctx, accessKey, deviceName)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	next := r.store.Read()
	next.User.AccessKey = accessKey
	next.User.AccessToken = token
	next.User.DeviceName = deviceName
	if err := r.store.Update(next); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	*r.config = next

	r.writePlainln("registered device %q with sync backend", deviceName)
	return nil
}
