package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/session"
)

// Playhead reports how far playback has got, as a fraction of the duration.
type Playhead interface {
	Fraction() float64
}

// PlayheadFunc adapts a function to Playhead.
type PlayheadFunc func() float64

func (f PlayheadFunc) Fraction() float64 { return f() }

// PercentFromFraction converts a played fraction to the stored integer
// percentage: floor(f*100) clamped to [0, 100]. 0.456 becomes 45.
// NaN (unknown duration) becomes 0.
func PercentFromFraction(f float64) int {
	if math.IsNaN(f) {
		return model.MinProgress
	}
	return model.ClampProgress(int(math.Floor(math.Max(-1, math.Min(f, 2)) * 100)))
}

// Checkpointer resumes and periodically saves playback progress of one movie
// for the session's profile.
type Checkpointer struct {
	remote   ProgressRemote
	sess     *session.Session
	movieID  string
	interval time.Duration
	rec      Recorder
	logger   *slog.Logger
}

// NewCheckpointer returns a Checkpointer for movieID. A non-positive interval
// falls back to DefaultCheckpointInterval. rec may be nil.
func NewCheckpointer(remote ProgressRemote, sess *session.Session, movieID string, interval time.Duration, rec Recorder, logger *slog.Logger) *Checkpointer {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	return &Checkpointer{
		remote:   remote,
		sess:     sess,
		movieID:  movieID,
		interval: interval,
		rec:      OrNop(rec),
		logger:   logger,
	}
}

func (c *Checkpointer) Interval() time.Duration { return c.interval }

// Resume returns the fraction playback should start from: progress/100 of the
// saved row, or 0 when there is no row (or no profile).
func (c *Checkpointer) Resume(ctx context.Context) (float64, error) {
	profileID := c.sess.ProfileID()
	if profileID == "" {
		return 0, nil
	}

	p, err := c.remote.GetProgress(ctx, profileID, c.movieID)
	if errors.Is(err, apperror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("watch: loading progress: %w", err)
	}
	return float64(model.ClampProgress(p.Progress)) / 100, nil
}

// Checkpoint saves the given played fraction once.
func (c *Checkpointer) Checkpoint(ctx context.Context, fraction float64) error {
	profileID := c.sess.ProfileID()
	if profileID == "" {
		return ErrNoProfile
	}

	percent := PercentFromFraction(fraction)
	err := c.remote.SaveProgress(ctx, profileID, c.movieID, percent)
	c.rec.ProgressCheckpointed(err)
	if err != nil {
		return fmt.Errorf("watch: saving progress %d%%: %w", percent, err)
	}
	return nil
}

// Run checkpoints the playhead every interval until ctx is done.
// Failed checkpoints are logged and dropped; the next tick supersedes them.
func (c *Checkpointer) Run(ctx context.Context, ph Playhead) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Checkpoint(ctx, ph.Fraction()); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("checkpoint dropped",
					slog.String("movie_id", c.movieID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
