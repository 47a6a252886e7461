// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, podcastsCommand, episodesCommand,
		playCommand, volumeCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand initializes the database and registers with the sync backend.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the database and register this device with the sync backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-register",
				Usage: "Skip sync backend registration",
			},
		},
		Action: r.Setup,
	}
}

// configCommand reads and writes configuration values.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Read and write configuration",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the active configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ConfigGet,
			},
			{
				Name:  "set",
				Usage: "Set one configuration value and persist it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.ConfigSet,
			},
		},
	}
}

// podcastsCommand manages the subscription library.
func podcastsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "podcasts",
		Aliases: []string{"pods"},
		Usage:   "Manage podcast subscriptions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List subscribed podcasts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PodcastsList,
			},
			{
				Name:   "sync",
				Usage:  "Fetch the remote subscription list and import new feeds",
				Action: r.PodcastsSync,
			},
			{
				Name:  "import",
				Usage: "Subscribe to a feed by URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.PodcastsImport,
			},
			{
				Name:  "remove",
				Usage: "Unsubscribe from a podcast and drop its episodes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PodcastsRemove,
			},
		},
	}
}

// episodesCommand browses and downloads episodes.
func episodesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "episodes",
		Aliases: []string{"eps"},
		Usage:   "Browse and download episodes",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a podcast's episodes with listen progress",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "podcast",
						Aliases:  []string{"p"},
						Usage:    "Podcast ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EpisodesList,
			},
			{
				Name:  "latest",
				Usage: "List the most recent episodes across the library",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of episodes to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EpisodesLatest,
			},
			{
				Name:  "history",
				Usage: "List episodes with listening progress",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EpisodesHistory,
			},
			{
				Name:  "download",
				Usage: "Download an episode's media for offline playback",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.EpisodesDownload,
			},
			{
				Name:  "progress",
				Usage: "Show saved listen progress for an episode",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.EpisodesProgress,
			},
		},
	}
}

// playCommand starts playback of one episode.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play an episode, resuming from saved progress (omit the id to resume the last played)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Play,
	}
}

// volumeCommand sets the playback volume.
func volumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "volume",
		Usage: "Set playback volume (0.0 to 1.0) and persist it",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "level"},
		},
		Action: r.Volume,
	}
}

// serveCommand runs the local frontend bridge.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON read API and SSE event stream for local frontends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Bind port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive terminal interface.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse and play the library interactively",
		Action: r.TUI,
	}
}
