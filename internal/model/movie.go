package model

import "time"

type Movie struct {
	ID           string    `json:"id"           db:"id"`
	Title        string    `json:"title"        db:"title"`
	Description  string    `json:"description"  db:"description"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	VideoURL     string    `json:"videoUrl"     db:"video_url"`
	ReleaseYear  int       `json:"releaseYear"  db:"release_year"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// Category is a named row on the browse page.
type Category struct {
	ID       string `json:"id"       db:"id"`
	Name     string `json:"name"     db:"name"`
	Position int    `json:"position" db:"position"`
}
