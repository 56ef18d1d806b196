package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sakif/streambox/internal/watch"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the server's YAML config file",
		Sources: cli.EnvVars("STREAMBOX_CONFIG"),
	}
}

func apiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Usage:   "Base URL of the streambox server",
			Value:   "http://localhost:8080",
			Sources: cli.EnvVars("STREAMBOX_URL"),
		},
		&cli.StringFlag{
			Name:     "email",
			Usage:    "Account email",
			Required: true,
			Sources:  cli.EnvVars("STREAMBOX_EMAIL"),
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "Account password",
			Required: true,
			Sources:  cli.EnvVars("STREAMBOX_PASSWORD"),
		},
		&cli.StringFlag{
			Name:     "movie",
			Aliases:  []string{"m"},
			Usage:    "Movie id",
			Required: true,
		},
	}
}

func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "seed",
		Usage:  "Insert the sample movies and categories into an empty catalog",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Seed,
	}
}

func promoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "Set the role of the profile owned by an account",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Email of the account to change",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "member or admin",
				Value: "admin",
			},
		},
		Action: r.Promote,
	}
}

func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "watchlist",
		Usage:  "Toggle a movie on the signed-in profile's list",
		Flags:  apiFlags(),
		Action: r.ToggleWatchlist,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Play a movie headlessly: resume, checkpoint on an interval, sign out on exit",
		Flags: append(apiFlags(),
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "How long to keep playing",
				Value: 30 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "length",
				Usage: "Pretend running time of the movie",
				Value: 2 * time.Hour,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Checkpoint interval",
				Value: watch.DefaultCheckpointInterval,
			},
		),
		Action: r.Watch,
	}
}
