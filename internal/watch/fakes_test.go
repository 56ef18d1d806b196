package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionWithProfile(id string) *session.Session {
	s := session.New()
	s.SetPrincipal(&model.Principal{ID: "u-" + id})
	s.SetProfile(&model.Profile{ID: id, Role: model.RoleMember})
	return s
}

// fakeWatchlistRemote records calls and can be told to fail or block.
type fakeWatchlistRemote struct {
	mu      sync.Mutex
	rows    map[string]map[string]bool
	calls   []string
	failErr error
	block   chan struct{} // when non-nil, Add/Remove wait on it
}

func newFakeWatchlistRemote() *fakeWatchlistRemote {
	return &fakeWatchlistRemote{rows: make(map[string]map[string]bool)}
}

func (f *fakeWatchlistRemote) ListWatchlist(_ context.Context, profileID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.failErr != nil {
		return nil, f.failErr
	}
	var ids []string
	for id := range f.rows[profileID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeWatchlistRemote) AddToWatchlist(_ context.Context, profileID, movieID string) error {
	return f.write("add:"+movieID, func() {
		if f.rows[profileID] == nil {
			f.rows[profileID] = make(map[string]bool)
		}
		f.rows[profileID][movieID] = true
	})
}

func (f *fakeWatchlistRemote) RemoveFromWatchlist(_ context.Context, profileID, movieID string) error {
	return f.write("remove:"+movieID, func() {
		delete(f.rows[profileID], movieID)
	})
}

func (f *fakeWatchlistRemote) write(call string, apply func()) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failErr != nil {
		return f.failErr
	}
	apply()
	return nil
}

func (f *fakeWatchlistRemote) seed(profileID string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[profileID] = make(map[string]bool)
	for _, id := range ids {
		f.rows[profileID][id] = true
	}
}

func (f *fakeWatchlistRemote) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *fakeWatchlistRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeProgressRemote struct {
	mu      sync.Mutex
	rows    map[string]int
	saves   []int
	failErr error
}

func newFakeProgressRemote() *fakeProgressRemote {
	return &fakeProgressRemote{rows: make(map[string]int)}
}

func (f *fakeProgressRemote) GetProgress(_ context.Context, profileID, movieID string) (*model.WatchProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[profileID+"/"+movieID]
	if !ok {
		return nil, apperror.NotFound("watch progress", movieID)
	}
	return &model.WatchProgress{UserID: profileID, MovieID: movieID, Progress: p}, nil
}

func (f *fakeProgressRemote) SaveProgress(_ context.Context, profileID, movieID string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		f.saves = append(f.saves, -1)
		return f.failErr
	}
	f.saves = append(f.saves, progress)
	f.rows[profileID+"/"+movieID] = progress
	return nil
}

func (f *fakeProgressRemote) saveLog() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.saves...)
}

type countingRecorder struct {
	mu          sync.Mutex
	toggles     map[string]int
	toggleFails int
	checkpoints int
	cpFails     int
}

func (r *countingRecorder) WatchlistToggled(action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.toggles == nil {
		r.toggles = make(map[string]int)
	}
	r.toggles[action]++
	if err != nil {
		r.toggleFails++
	}
}

func (r *countingRecorder) ProgressCheckpointed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints++
	if err != nil {
		r.cpFails++
	}
}
