// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package tmdb

import "github.com/tomtom215/watchly/internal/models"

// TMDB path segments per content type.
const (
	mediaMovie = "movie"
	mediaTV    = "tv"
)

func mediaType(ct models.ContentType) string {
	if ct == models.ContentTypeSeries {
		return mediaTV
	}
	return mediaMovie
}

type findResponse struct {
	MovieResults []struct {
		ID int `json:"id"`
	} `json:"movie_results"`
	TVResults []struct {
		ID int `json:"id"`
	} `json:"tv_results"`
}

// findResult is the cached outcome of a find call. Zero ids mean no match.
type findResult struct {
	MovieID int
	TVID    int
}

func (f findResult) idFor(ct models.ContentType) int {
	if ct == models.ContentTypeSeries {
		return f.TVID
	}
	return f.MovieID
}

type recommendationsResponse struct {
	Page    int `json:"page"`
	Results []struct {
		ID          int     `json:"id"`
		VoteAverage float64 `json:"vote_average"`
	} `json:"results"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// details covers both /movie/{id} and /tv/{id}; movies use title and
// release_date, series use name and first_air_date.
type details struct {
	ID           int     `json:"id"`
	IMDbID       string  `json:"imdb_id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	Genres       []genre `json:"genres"`
	ExternalIDs  struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

func (d *details) imdbID() string {
	if d.IMDbID != "" {
		return d.IMDbID
	}
	return d.ExternalIDs.IMDbID
}

func (d *details) title() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

func (d *details) year() string {
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
