package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sakif/streambox/internal/client"
	"github.com/sakif/streambox/internal/config"
	"github.com/sakif/streambox/internal/repository/sqlstore"
)

// Runner holds the dependencies shared by every command. Each command
// action is a method on it.
type Runner struct {
	logger     *slog.Logger
	output     io.Writer
	httpClient *http.Client
}

type RunnerOpts struct {
	Logger     *slog.Logger
	Output     io.Writer
	HTTPClient *http.Client
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Runner{
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
	}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		seedCommand(r),
		promoteCommand(r),
		watchlistCommand(r),
		watchCommand(r),
	}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}

// openStore opens the store named by --config and the DB_PATH /
// DATABASE_URL variables, exactly as the server would.
func (r *Runner) openStore(cmd *cli.Command) (*sqlstore.DB, error) {
	cfg, err := config.Read(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN())
}

// signIn returns an API client signed in with --email and --password.
// The caller must sign it out.
func (r *Runner) signIn(ctx context.Context, cmd *cli.Command) (*client.Client, error) {
	c := client.New(cmd.String("server"), client.WithHTTPClient(r.httpClient))
	if err := c.SignIn(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if c.Session().ProfileID() == "" {
		r.signOut(c)
		return nil, fmt.Errorf("account %s has no profile", cmd.String("email"))
	}
	return c, nil
}

// signOut runs on exit paths, so it gets its own context: the command's
// may already be cancelled by Ctrl+C.
func (r *Runner) signOut(c *client.Client) {
	if err := c.SignOut(context.Background()); err != nil {
		r.logger.Warn("sign out failed", slog.String("error", err.Error()))
	}
}
