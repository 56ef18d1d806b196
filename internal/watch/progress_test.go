package watch

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/streambox/internal/session"
)

func TestPercentFromFraction(t *testing.T) {
	tests := []struct {
		fraction float64
		want     int
	}{
		{0, 0},
		{0.456, 45},
		{0.999, 99},
		{1, 100},
		{1.5, 100},
		{-0.2, 0},
		{math.NaN(), 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		if got := PercentFromFraction(tt.fraction); got != tt.want {
			t.Errorf("PercentFromFraction(%v) = %d, want %d", tt.fraction, got, tt.want)
		}
	}
}

func TestResume_NoRowStartsAtZero(t *testing.T) {
	remote := newFakeProgressRemote()
	c := NewCheckpointer(remote, sessionWithProfile("p1"), "m1", 0, nil, discardLogger())

	start, err := c.Resume(context.Background())
	require.NoError(t, err)
	assert.Zero(t, start)
	assert.Equal(t, DefaultCheckpointInterval, c.Interval())
}

func TestResume_FromSavedRow(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.rows["p1/m1"] = 45
	c := NewCheckpointer(remote, sessionWithProfile("p1"), "m1", time.Second, nil, discardLogger())

	start, err := c.Resume(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.45, start, 1e-9)
}

func TestResume_NoProfile(t *testing.T) {
	c := NewCheckpointer(newFakeProgressRemote(), session.New(), "m1", time.Second, nil, discardLogger())

	start, err := c.Resume(context.Background())
	require.NoError(t, err)
	assert.Zero(t, start)
}

func TestCheckpoint_FloorsFraction(t *testing.T) {
	remote := newFakeProgressRemote()
	c := NewCheckpointer(remote, sessionWithProfile("p1"), "m1", time.Second, nil, discardLogger())

	require.NoError(t, c.Checkpoint(context.Background(), 0.456))
	assert.Equal(t, []int{45}, remote.saveLog())
	assert.Equal(t, 45, remote.rows["p1/m1"])
}

func TestCheckpoint_NoProfile(t *testing.T) {
	remote := newFakeProgressRemote()
	c := NewCheckpointer(remote, session.New(), "m1", time.Second, nil, discardLogger())

	assert.ErrorIs(t, c.Checkpoint(context.Background(), 0.5), ErrNoProfile)
	assert.Empty(t, remote.saveLog())
}

func TestRun_CheckpointsOnInterval(t *testing.T) {
	remote := newFakeProgressRemote()
	rec := &countingRecorder{}
	c := NewCheckpointer(remote, sessionWithProfile("p1"), "m1", 10*time.Millisecond, rec, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, PlayheadFunc(func() float64 { return 0.3 }))
		close(done)
	}()

	require.Eventually(t, func() bool { return len(remote.saveLog()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	for _, v := range remote.saveLog() {
		assert.Equal(t, 30, v)
	}
}

func TestRun_FailedCheckpointIsSuperseded(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.failErr = errors.New("timeout")
	rec := &countingRecorder{}
	c := NewCheckpointer(remote, sessionWithProfile("p1"), "m1", 10*time.Millisecond, rec, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, PlayheadFunc(func() float64 { return 0.5 }))

	require.Eventually(t, func() bool { return len(remote.saveLog()) >= 1 }, time.Second, 5*time.Millisecond)

	remote.mu.Lock()
	remote.failErr = nil
	remote.mu.Unlock()

	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.rows["p1/m1"] == 50
	}, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.GreaterOrEqual(t, rec.cpFails, 1)
}
