package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/matching"
	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/services"
	"github.com/ellievs/covermatch/internal/shared"
)

// smallImageMax and largeImageMin bound the medium band of the image triple.
const (
	smallImageMax = 300
	largeImageMin = 640
)

// Resolver matches catalog songs against the track backend and persists the
// winning mapping.
//
// Search, scoring and fetch failures resolve to nil; only persistence writes
// surface errors. A song below the confidence threshold leaves no trace in
// the store, so it can be retried on the next pass.
type Resolver struct {
	spotify services.TrackService
	store   models.MappingStore
	logger  *log.Logger

	now func() time.Time
}

// ResolverOpts contains configuration options for creating a Resolver.
type ResolverOpts struct {
	Spotify services.TrackService
	Store   models.MappingStore
	Logger  *log.Logger
}

// NewResolver creates a new Resolver with the provided options.
func NewResolver(opts ResolverOpts) *Resolver {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Resolver{
		spotify: opts.Spotify,
		store:   opts.Store,
		logger:  opts.Logger,
		now:     time.Now,
	}
}

// Mapping returns the stored mapping for a song ID, or nil when none exists.
// Storage read failures degrade to nil so lookups never block callers.
func (r *Resolver) Mapping(songID string) *models.Mapping {
	mapping, err := r.store.Get(songID)
	if err != nil {
		r.logger.Warn("mapping lookup failed", "song_id", songID, "error", err)
		return nil
	}
	return mapping
}

type scoredTrack struct {
	track services.Track
	score int
}

// SearchAndMap resolves a song to its best track candidate and persists the
// mapping.
//
// Candidates are scored against the song and the highest scorer wins, ties
// broken by search rank. Anything below the confidence threshold resolves to
// nil without a store write. The returned error is non-nil only for
// persistence failures.
func (r *Resolver) SearchAndMap(ctx context.Context, song models.Song, market string) (*models.Mapping, error) {
	if !r.spotify.IsConfigured() {
		r.logger.Warn("track backend not configured, skipping resolution", "song_id", song.ID)
		return nil, nil
	}

	results := r.spotify.SearchTrack(ctx, song.Title, song.Artist, song.Year, market)
	if len(results) == 0 {
		r.logger.Debug("no search results", "song_id", song.ID, "title", song.Title)
		return nil, nil
	}

	scored := make([]scoredTrack, len(results))
	for i, track := range results {
		candidate := matching.Candidate{
			Name:     track.Name,
			Artists:  track.ArtistNames(),
			Year:     track.Album.ReleaseYear(),
			Position: i,
		}
		scored[i] = scoredTrack{track: track, score: matching.Score(song, candidate)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	best := scored[0]
	if best.score < matching.MatchThreshold {
		r.logger.Debug("best candidate below threshold",
			"song_id", song.ID, "track", best.track.Name, "score", best.score)
		return nil, nil
	}

	track := r.spotify.GetTrack(ctx, best.track.ID, market)
	if track == nil {
		return nil, nil
	}

	// Aborted resolutions must not leave a cache entry behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	large, medium, small := selectImages(track.Album.Images)
	mapping := &models.Mapping{
		SongID:         song.ID,
		TrackID:        track.ID,
		AlbumID:        track.Album.ID,
		ImageURLLarge:  large,
		ImageURLMedium: medium,
		ImageURLSmall:  small,
		PreviewURL:     track.PreviewURL,
		ExternalURL:    track.ExternalURL(),
		Confidence:     best.score,
		MappedAt:       r.now(),
		ManualOverride: false,
		Market:         market,
	}

	if err := r.store.Put(mapping); err != nil {
		return nil, fmt.Errorf("failed to persist mapping for %s: %w", song.ID, err)
	}

	r.logger.Info("mapped song to track",
		"song_id", song.ID, "track_id", track.ID, "score", best.score)

	return mapping, nil
}

// SetMapping pins a song to a specific track, bypassing search and scoring.
//
// An override mapping carries full confidence and is verified at write time.
// Returns nil when the track fetch fails; the error is non-nil only for
// persistence failures.
func (r *Resolver) SetMapping(ctx context.Context, songID, trackID string, manualOverride bool, market string) (*models.Mapping, error) {
	track := r.spotify.GetTrack(ctx, trackID, market)
	if track == nil {
		r.logger.Warn("track fetch failed, mapping not set", "song_id", songID, "track_id", trackID)
		return nil, nil
	}

	now := r.now()
	large, medium, small := selectImages(track.Album.Images)
	mapping := &models.Mapping{
		SongID:         songID,
		TrackID:        track.ID,
		AlbumID:        track.Album.ID,
		ImageURLLarge:  large,
		ImageURLMedium: medium,
		ImageURLSmall:  small,
		PreviewURL:     track.PreviewURL,
		ExternalURL:    track.ExternalURL(),
		Confidence:     100,
		MappedAt:       now,
		LastVerified:   &now,
		ManualOverride: manualOverride,
		Market:         market,
	}

	if err := r.store.Put(mapping); err != nil {
		return nil, fmt.Errorf("failed to persist mapping for %s: %w", songID, err)
	}

	r.logger.Info("pinned song to track",
		"song_id", songID, "track_id", track.ID, "override", manualOverride)

	return mapping, nil
}

// DeleteMapping removes the mapping for a song ID. Write failures propagate.
func (r *Resolver) DeleteMapping(songID string) error {
	return r.store.Delete(songID)
}

// AllMappings returns every stored mapping. Read failures degrade to an empty
// slice.
func (r *Resolver) AllMappings() []*models.Mapping {
	mappings, err := r.store.All()
	if err != nil {
		r.logger.Warn("mapping list failed", "error", err)
		return nil
	}
	return mappings
}

// ClearMappings removes every stored mapping. Write failures propagate.
func (r *Resolver) ClearMappings() error {
	return r.store.Clear()
}

// selectImages picks the large/medium/small triple from an album's image list.
//
// Total over any list length: an empty list yields empty URLs, a single image
// serves all three slots.
func selectImages(images []services.Image) (large, medium, small string) {
	if len(images) == 0 {
		return "", "", ""
	}

	large = images[0].URL
	for _, img := range images {
		if img.Height >= largeImageMin {
			large = img.URL
			break
		}
	}

	medium = ""
	for _, img := range images {
		if img.Height >= smallImageMax && img.Height < largeImageMin {
			medium = img.URL
			break
		}
	}
	if medium == "" {
		if len(images) > 1 {
			medium = images[1].URL
		} else {
			medium = images[0].URL
		}
	}

	small = ""
	for _, img := range images {
		if img.Height < smallImageMax {
			small = img.URL
			break
		}
	}
	if small == "" {
		small = images[len(images)-1].URL
	}

	return large, medium, small
}
