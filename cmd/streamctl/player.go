package main

import (
	"time"
)

// playhead advances in wall-clock time from a starting fraction, the way
// a <video> element's currentTime does while playing.
type playhead struct {
	start   float64
	length  time.Duration
	began   time.Time
	elapsed func(time.Time) time.Duration
}

func newPlayhead(start float64, length time.Duration) *playhead {
	if length <= 0 {
		length = time.Hour
	}
	return &playhead{
		start:   start,
		length:  length,
		began:   time.Now(),
		elapsed: time.Since,
	}
}

// Fraction implements watch.Playhead.
func (p *playhead) Fraction() float64 {
	f := p.start + float64(p.elapsed(p.began))/float64(p.length)
	if f > 1 {
		return 1
	}
	return f
}

// remaining is the playing time left before the end of the movie.
func (p *playhead) remaining() time.Duration {
	left := time.Duration((1 - p.Fraction()) * float64(p.length))
	if left < 0 {
		return 0
	}
	return left
}
