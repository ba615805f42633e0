// package models defines the data model for the cover-art mapping service
package models

import (
	"fmt"
	"strings"
	"time"
)

// SongTypeAnime is the catalog type tag that routes a song to the anime-image backend.
const SongTypeAnime = "anime"

// Song is a catalog entry to be resolved against a remote music service.
//
// Songs are owned by the catalog layer; this subsystem treats them as immutable input.
type Song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Year   int    `json:"year,omitempty"`
	Type   string `json:"type,omitempty"`
	Origin string `json:"origin,omitempty"` // anime series name, used when Type is anime
}

// IsAnime reports whether the song routes to the anime-image backend.
func (s Song) IsAnime() bool {
	return strings.EqualFold(s.Type, SongTypeAnime)
}

// Mapping is the durable join between a song and a resolved remote track.
//
// One mapping exists per song ID; re-resolving overwrites in place. A mapping
// is only ever written fully built, never partially.
type Mapping struct {
	SongID         string     `json:"song_id"`
	TrackID        string     `json:"track_id"`
	AlbumID        string     `json:"album_id"`
	ImageURLLarge  string     `json:"image_url_large,omitempty"`
	ImageURLMedium string     `json:"image_url_medium,omitempty"`
	ImageURLSmall  string     `json:"image_url_small,omitempty"`
	PreviewURL     string     `json:"preview_url,omitempty"`
	ExternalURL    string     `json:"external_url"`
	Confidence     int        `json:"confidence_score"`
	MappedAt       time.Time  `json:"mapped_at"`
	LastVerified   *time.Time `json:"last_verified,omitempty"`
	ManualOverride bool       `json:"manual_override"`
	Market         string     `json:"market_code"`
}

// Validate checks the mapping's invariants before it is persisted.
func (m *Mapping) Validate() error {
	if m.SongID == "" {
		return fmt.Errorf("mapping requires a song ID")
	}
	if m.TrackID == "" {
		return fmt.Errorf("mapping requires a track ID")
	}
	if m.Confidence < 0 || m.Confidence > 100 {
		return fmt.Errorf("confidence score out of range: %d", m.Confidence)
	}
	if m.ManualOverride && m.Confidence != 100 {
		return fmt.Errorf("manual override must carry confidence 100, got %d", m.Confidence)
	}
	return nil
}

// BestImageURL returns the best available image URL, preferring large over
// medium over small. Empty string when the mapping carries no images.
func (m *Mapping) BestImageURL() string {
	if m.ImageURLLarge != "" {
		return m.ImageURLLarge
	}
	if m.ImageURLMedium != "" {
		return m.ImageURLMedium
	}
	return m.ImageURLSmall
}

// MappingStore defines the persistence collaborator for mappings, keyed by song ID.
//
// Get returns (nil, nil) when no mapping exists so callers can distinguish
// absence from a lookup failure.
type MappingStore interface {
	Get(songID string) (*Mapping, error)
	Put(mapping *Mapping) error
	Delete(songID string) error
	All() ([]*Mapping, error)
	Clear() error
}
