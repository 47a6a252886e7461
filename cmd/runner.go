package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/downloads"
	"github.com/desertthunder/castro/internal/player"
	"github.com/desertthunder/castro/internal/repositories"
	"github.com/desertthunder/castro/internal/services"
	"github.com/desertthunder/castro/internal/shared"
	"github.com/desertthunder/castro/internal/tasks"
)

// terminalWait bounds how long one-shot commands wait for a detached
// operation's terminal notification.
const terminalWait = 10 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      *shared.ConfigStore
	httpClient *http.Client
	feeds      services.FeedService
	remote     services.SyncService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Feeds      services.FeedService
	Remote     services.SyncService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Feeds == nil {
		opts.Feeds = services.NewWebFeedService(opts.HTTPClient)
	}
	if opts.Remote == nil {
		opts.Remote = services.NewAPIService(opts.Config.Server.SyncURL, opts.Config.User.AccessToken, opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      shared.NewConfigStore(opts.Config, opts.ConfigPath),
		httpClient: opts.HTTPClient,
		feeds:      opts.Feeds,
		remote:     opts.Remote,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// library bundles everything built on top of an open database connection.
type library struct {
	db       *sql.DB
	podcasts *repositories.PodcastRepository
	episodes *repositories.EpisodeRepository
	changes  *bus.Bus
	tracker  *downloads.Tracker
	player   *player.Player
	engine   *tasks.Engine
}

// openLibrary connects to the configured database and wires the full stack.
// The caller is responsible for calling Close.
func (r *Runner) openLibrary() (*library, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	podcasts := repositories.NewPodcastRepository(db)
	episodes := repositories.NewEpisodeRepository(db)
	changes := bus.New(r.logger)
	tracker := downloads.NewTracker()
	orchestrator := downloads.NewOrchestrator(episodes, r.feeds, tracker, r.config.Storage.DownloadDir, r.logger)
	p := player.New(episodes, r.config.Playback.Volume, r.logger)
	engine := tasks.NewEngine(podcasts, episodes, r.feeds, r.remote, orchestrator, p, changes, r.logger)

	return &library{
		db:       db,
		podcasts: podcasts,
		episodes: episodes,
		changes:  changes,
		tracker:  tracker,
		player:   p,
		engine:   engine,
	}, nil
}

func (l *library) Close() {
	l.engine.Wait()
	l.player.Stop()
	l.changes.Close()
	l.db.Close()
}

// awaitTerminal blocks until the detached operation identified by requestID
// publishes its terminal notification, returning its payload on success.
func (r *Runner) awaitTerminal(sub *bus.Subscription, requestID, doneSignal, errSignal string) (any, error) {
	deadline := time.NewTimer(terminalWait)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			return nil, fmt.Errorf("timed out waiting for completion of request %s", requestID)
		case n, ok := <-sub.C:
			if !ok {
				return nil, errors.New("notification stream closed")
			}
			switch n.Signal {
			case doneSignal:
				if taggedWith(n.Payload, requestID) {
					return n.Payload, nil
				}
			case errSignal:
				if e, ok := n.Payload.(tasks.OperationError); ok && e.RequestID == requestID {
					return nil, errors.New(e.Message)
				}
			}
		}
	}
}

// taggedWith checks whether a terminal payload carries the request id.
func taggedWith(payload any, requestID string) bool {
	switch p := payload.(type) {
	case tasks.SyncResult:
		return p.RequestID == requestID
	case tasks.ImportResult:
		return p.RequestID == requestID
	case tasks.DownloadResult:
		return p.RequestID == requestID
	case tasks.OperationError:
		return p.RequestID == requestID
	default:
		return false
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
