package service

import (
	"context"
	"fmt"
	"log/slog"
)

const sampleVideo = "https://test-videos.co.uk/vids/bigbuckbunny/mp4/h264/720/Big_Buck_Bunny_720_10s_1MB.mp4"

// SampleMovies is the demo catalog inserted by "streamctl seed".
var SampleMovies = []MovieInput{
	{
		Title:        "Inception",
		Description:  "A thief who steals corporate secrets through dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O.",
		ThumbnailURL: "https://images.unsplash.com/photo-1536440136628-849c177e76a1?w=800",
		VideoURL:     sampleVideo,
		ReleaseYear:  2010,
	},
	{
		Title:        "The Matrix",
		Description:  "A computer programmer discovers that reality as he knows it is a simulation created by machines, and joins a rebellion to break free.",
		ThumbnailURL: "https://images.unsplash.com/photo-1526374965328-7f61d4dc18c5?w=800",
		VideoURL:     sampleVideo,
		ReleaseYear:  1999,
	},
	{
		Title:        "Interstellar",
		Description:  "A team of explorers travel through a wormhole in space in an attempt to ensure humanity's survival.",
		ThumbnailURL: "https://images.unsplash.com/photo-1446776811953-b23d57bd21aa?w=800",
		VideoURL:     sampleVideo,
		ReleaseYear:  2014,
	},
	{
		Title:        "Blade Runner 2049",
		Description:  "A young blade runner's discovery of a long-buried secret leads him to track down former blade runner Rick Deckard.",
		ThumbnailURL: "https://images.unsplash.com/photo-1579546929518-9e396f3cc809?w=800",
		VideoURL:     sampleVideo,
		ReleaseYear:  2017,
	},
	{
		Title:        "The Shawshank Redemption",
		Description:  "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency.",
		ThumbnailURL: "https://images.unsplash.com/photo-1534447677768-be436bb09401?w=800",
		VideoURL:     sampleVideo,
		ReleaseYear:  1994,
	},
}

// SampleCategories are the rows of the browse page, in display order.
var SampleCategories = []string{"Trending Now", "Popular on Netflix", "Sci-Fi Hits", "Award-Winning Films"}

// Seed fills an empty catalog with the sample data. A catalog that already
// has movies is left alone, so running it twice is harmless.
func (s *CatalogService) Seed(ctx context.Context) (movies, categories int, err error) {
	n, err := s.movies.CountMovies(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("service/catalog: counting movies: %w", err)
	}
	if n > 0 {
		s.logger.Info("catalog already seeded", slog.Int("movies", n))
		return 0, 0, nil
	}

	// Reverse order: listings are newest first and Inception is the hero title.
	for i := len(SampleMovies) - 1; i >= 0; i-- {
		if _, err := s.CreateMovie(ctx, SampleMovies[i]); err != nil {
			return movies, categories, err
		}
		movies++
	}

	existing, err := s.ListCategories(ctx)
	if err != nil {
		return movies, categories, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Name] = true
	}
	for i, name := range SampleCategories {
		if have[name] {
			continue
		}
		if _, err := s.CreateCategory(ctx, name, i); err != nil {
			return movies, categories, err
		}
		categories++
	}

	s.logger.Info("catalog seeded", slog.Int("movies", movies), slog.Int("categories", categories))
	return movies, categories, nil
}
