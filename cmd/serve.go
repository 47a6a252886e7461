package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/castro/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the local frontend bridge: the JSON read API plus the SSE event
// stream carrying change-bus notifications.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	host := r.config.Server.Host
	if flag := cmd.String("host"); flag != "" {
		host = flag
	}
	port := r.config.Server.Port
	if flag := cmd.Int("port"); flag != 0 {
		port = flag
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestID(), server.RequestLogger(r.logger))
	router.Handler(server.NewLibraryHandler(lib.podcasts, lib.episodes, lib.tracker, lib.player, lib.engine, r.logger))
	router.Handler(server.NewEventsHandler(lib.changes, r.logger))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", host, port)
	return server.Serve(ctx, addr, router, r.logger)
}
