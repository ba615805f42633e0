// package services defines interfaces for the remote metadata backends
//
// Spotify (track matching), Jikan (anime images)
package services

import (
	"context"
	"strconv"
)

// TrackService is the music-matching backend used by track resolution.
//
// Search and single-entity fetches are best-effort: failures surface as empty
// results or nil, never as errors. Callers must check IsConfigured before
// attempting resolution.
type TrackService interface {
	// IsConfigured reports whether API credentials are present.
	IsConfigured() bool

	// SearchTrack returns up to 20 ranked candidates for a field-filtered
	// query. Empty when title is blank or on any API failure.
	SearchTrack(ctx context.Context, title, artist string, year int, market string) []Track

	// GetTrack fetches a full track by ID. Nil on any failure.
	GetTrack(ctx context.Context, trackID, market string) *Track

	// GetAlbum fetches a full album by ID. Nil on any failure.
	GetAlbum(ctx context.Context, albumID, market string) *Album
}

// ImageService is the anime-image backend.
type ImageService interface {
	// AnimeCover returns the best cover image URL for a free-text query, or
	// empty string when nothing is found or on any failure.
	AnimeCover(ctx context.Context, origin string) string
}

// Image represents an image resource with pixel dimensions.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a performing artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album represents an album with its ordered image list.
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// ReleaseYear extracts the release year from the album's release date, which
// may be a bare year or a full date. Returns 0 when unknown.
func (a Album) ReleaseYear() int {
	if len(a.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(a.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// Track represents a remote track candidate. Transient; never persisted directly.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	PreviewURL   string       `json:"preview_url"`
	ExternalURLs externalURLs `json:"external_urls"`
	Popularity   int          `json:"popularity"`
}

// ExternalURL returns the track's public web link.
func (t Track) ExternalURL() string {
	return t.ExternalURLs.Spotify
}

// ArtistNames returns the names of the track's performing artists in order.
func (t Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}
