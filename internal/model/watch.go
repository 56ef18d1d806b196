package model

import "time"

// WatchlistEntry marks a movie saved for later by a profile.
// (UserID, MovieID) is unique.
type WatchlistEntry struct {
	UserID    string    `json:"userId"    db:"user_id"`
	MovieID   string    `json:"movieId"   db:"movie_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WatchProgress is the last checkpointed playback position of a profile on a
// movie, as an integer percentage in [0, 100].
type WatchProgress struct {
	UserID    string    `json:"userId"    db:"user_id"`
	MovieID   string    `json:"movieId"   db:"movie_id"`
	Progress  int       `json:"progress"  db:"progress"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	MinProgress = 0
	MaxProgress = 100
)

// ClampProgress bounds p to [MinProgress, MaxProgress].
func ClampProgress(p int) int {
	if p < MinProgress {
		return MinProgress
	}
	if p > MaxProgress {
		return MaxProgress
	}
	return p
}
