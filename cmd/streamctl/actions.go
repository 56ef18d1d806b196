package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/service"
	"github.com/sakif/streambox/internal/watch"
)

// Seed inserts the sample catalog. A catalog that already has movies is
// left alone.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog := service.NewCatalogService(db, db, r.logger)
	movies, categories, err := catalog.Seed(ctx)
	if err != nil {
		return err
	}

	if movies == 0 && categories == 0 {
		r.printf("catalog already has movies, nothing to do\n")
		return nil
	}
	r.printf("seeded %d movies and %d categories\n", movies, categories)
	return nil
}

// Promote sets the role of one account's profile.
func (r *Runner) Promote(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	profiles := service.NewProfileService(db, db, r.logger)
	p, err := profiles.SetRoleByEmail(ctx, cmd.String("email"), model.Role(cmd.String("role")))
	if err != nil {
		return err
	}

	r.printf("%s (%s) is now %s\n", p.DisplayName, cmd.String("email"), p.Role)
	return nil
}

// ToggleWatchlist signs in, loads the list, flips one movie and signs out.
func (r *Runner) ToggleWatchlist(ctx context.Context, cmd *cli.Command) error {
	c, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}
	defer r.signOut(c)

	list := watch.NewWatchlist(c, c.Session(), nil, r.logger)
	if err := list.Load(ctx); err != nil {
		return err
	}

	movieID := cmd.String("movie")
	added, err := list.Toggle(ctx, movieID)
	if err != nil {
		return err
	}

	verb := "removed from"
	if added {
		verb = "added to"
	}
	r.printf("%s %s your list (%d movies)\n", movieID, verb, list.Len())
	return nil
}

// Watch is a headless player. It resumes from the saved checkpoint, moves
// the playhead in real time against --length and checkpoints every
// --interval until --duration passes, the movie ends or the user hits
// Ctrl+C. A last checkpoint is written on the way out.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	c, err := r.signIn(ctx, cmd)
	if err != nil {
		return err
	}
	defer r.signOut(c)

	movieID := cmd.String("movie")
	movie, err := c.GetMovie(ctx, movieID)
	if err != nil {
		return err
	}

	cp := watch.NewCheckpointer(c, c.Session(), movie.ID, cmd.Duration("interval"), nil, r.logger)
	start, err := cp.Resume(ctx)
	if err != nil {
		return err
	}

	ph := newPlayhead(start, cmd.Duration("length"))
	r.printf("playing %q from %d%%\n", movie.Title, watch.PercentFromFraction(start))

	playCtx, cancel := context.WithTimeout(ctx, min(cmd.Duration("duration"), ph.remaining()))
	defer cancel()

	cp.Run(playCtx, ph)

	final := ph.Fraction()
	if err := cp.Checkpoint(context.Background(), final); err != nil {
		r.logger.Warn("final checkpoint failed", slog.String("error", err.Error()))
	}
	r.printf("stopped at %d%%\n", watch.PercentFromFraction(final))
	return nil
}
