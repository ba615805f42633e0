package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/repositories"
	"github.com/ellievs/covermatch/internal/services"
	"github.com/ellievs/covermatch/internal/shared"
)

func newTestBatchMapper(svc services.TrackService, store models.MappingStore) *BatchMapper {
	b := NewBatchMapper(BatchMapperOpts{
		Resolver: newTestResolver(svc, store),
		Logger:   shared.NewLogger(io.Discard),
	})
	b.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return b
}

// matchableService resolves every searched title to an identical exact-match
// track, so each song maps successfully.
type matchableService struct {
	stubTrackService
	mu     sync.Mutex
	tracks map[string]*services.Track
	nextID int
}

func newMatchableService() *matchableService {
	return &matchableService{
		stubTrackService: stubTrackService{configured: true},
		tracks:           make(map[string]*services.Track),
	}
}

func (s *matchableService) SearchTrack(ctx context.Context, title, artist string, year int, market string) []services.Track {
	if s.onSearch != nil {
		s.onSearch()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	s.nextID++
	track := services.Track{
		ID:      fmt.Sprintf("t%d", s.nextID),
		Name:    title,
		Artists: []services.Artist{{Name: artist}},
		Album: services.Album{
			ID:          fmt.Sprintf("a%d", s.nextID),
			ReleaseDate: fmt.Sprintf("%d-01-01", year),
			Images:      []services.Image{{URL: "https://img/cover.jpg", Height: 640, Width: 640}},
		},
	}
	s.tracks[track.ID] = &track
	return []services.Track{track}
}

func (s *matchableService) GetTrack(ctx context.Context, trackID, market string) *services.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks[trackID]
}

func testSongs(n int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{
			ID:     fmt.Sprintf("song%d", i+1),
			Title:  fmt.Sprintf("Title %d", i+1),
			Artist: fmt.Sprintf("Artist %d", i+1),
			Year:   2000 + i,
		}
	}
	return songs
}

func TestBatchMapper_MapSongs(t *testing.T) {
	t.Run("Maps Every Unmapped Song", func(t *testing.T) {
		svc := newMatchableService()
		store := repositories.NewMemoryStore()
		b := newTestBatchMapper(svc, store)

		var (
			mu        sync.Mutex
			snapshots []ProgressSnapshot
		)
		result, err := b.MapSongs(context.Background(), testSongs(5), BatchOptions{
			MaxConcurrent: 2,
			OnProgress: func(s ProgressSnapshot) {
				mu.Lock()
				snapshots = append(snapshots, s)
				mu.Unlock()
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Successful != 5 || result.Failed != 0 || result.Skipped != 0 {
			t.Errorf("unexpected result: %+v", result)
		}

		if len(snapshots) != 5 {
			t.Fatalf("expected 5 progress callbacks, got %d", len(snapshots))
		}
		last := snapshots[len(snapshots)-1]
		if last.Total != 5 || last.Completed != 5 || last.Successful != 5 {
			t.Errorf("unexpected final snapshot: %+v", last)
		}
		for _, s := range snapshots {
			if s.CurrentSong == nil {
				t.Error("expected CurrentSong on every snapshot")
			}
		}

		all, err := store.All()
		if err != nil {
			t.Fatalf("failed to list mappings: %v", err)
		}
		if len(all) != 5 {
			t.Errorf("expected 5 persisted mappings, got %d", len(all))
		}
	})

	t.Run("Skips Already Mapped Songs Without Progress", func(t *testing.T) {
		svc := newMatchableService()
		store := repositories.NewMemoryStore()
		songs := testSongs(4)

		for _, song := range songs[:2] {
			seed := &models.Mapping{
				SongID:     song.ID,
				TrackID:    "seed-" + song.ID,
				Confidence: 90,
				MappedAt:   testResolveTime,
				Market:     "US",
			}
			if err := store.Put(seed); err != nil {
				t.Fatalf("failed to seed mapping: %v", err)
			}
		}

		b := newTestBatchMapper(svc, store)
		var callbacks atomic.Int32
		result, err := b.MapSongs(context.Background(), songs, BatchOptions{
			OnProgress: func(ProgressSnapshot) { callbacks.Add(1) },
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Skipped != 2 || result.Successful != 2 || result.Failed != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
		if callbacks.Load() != 2 {
			t.Errorf("expected progress only for processed songs, got %d callbacks", callbacks.Load())
		}
	})

	t.Run("Manual Override Is Reprocessed And Skipped In Window", func(t *testing.T) {
		svc := newMatchableService()
		store := repositories.NewMemoryStore()
		songs := testSongs(2)

		override := &models.Mapping{
			SongID:         songs[0].ID,
			TrackID:        "pinned",
			Confidence:     100,
			MappedAt:       testResolveTime,
			ManualOverride: true,
			Market:         "US",
		}
		if err := store.Put(override); err != nil {
			t.Fatalf("failed to seed override: %v", err)
		}

		b := newTestBatchMapper(svc, store)
		var callbacks atomic.Int32
		result, err := b.MapSongs(context.Background(), songs, BatchOptions{
			OnProgress: func(ProgressSnapshot) { callbacks.Add(1) },
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Skipped != 1 || result.Successful != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if callbacks.Load() != 2 {
			t.Errorf("expected progress for the override song too, got %d callbacks", callbacks.Load())
		}

		stored, _ := store.Get(songs[0].ID)
		if stored == nil || stored.TrackID != "pinned" {
			t.Errorf("override mapping must survive the run, got %+v", stored)
		}
	})

	t.Run("Unresolved Songs Count Failed", func(t *testing.T) {
		svc := &stubTrackService{configured: true} // search always empty
		b := newTestBatchMapper(svc, repositories.NewMemoryStore())

		result, err := b.MapSongs(context.Background(), testSongs(3), BatchOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Failed != 3 || result.Successful != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("Persistence Failures Count Failed Without Aborting", func(t *testing.T) {
		svc := newMatchableService()
		b := newTestBatchMapper(svc, failingStore{})

		result, err := b.MapSongs(context.Background(), testSongs(3), BatchOptions{})
		if err != nil {
			t.Fatalf("expected per-song errors to be absorbed, got %v", err)
		}
		if result.Failed != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("Concurrency Stays Within Window Size", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		svc := newMatchableService()
		svc.onSearch = func() {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}

		b := newTestBatchMapper(svc, repositories.NewMemoryStore())
		if _, err := b.MapSongs(context.Background(), testSongs(7), BatchOptions{MaxConcurrent: 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := peak.Load(); got > 2 {
			t.Errorf("expected at most 2 concurrent resolutions, got %d", got)
		}
	})

	t.Run("Cancellation Stops Before The Next Window", func(t *testing.T) {
		svc := newMatchableService()
		b := newTestBatchMapper(svc, repositories.NewMemoryStore())

		ctx, cancel := context.WithCancel(context.Background())
		result, err := b.MapSongs(ctx, testSongs(4), BatchOptions{
			MaxConcurrent: 1,
			OnProgress: func(s ProgressSnapshot) {
				if s.Completed == 1 {
					cancel()
				}
			},
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Successful != 1 {
			t.Errorf("expected partial result with 1 success, got %+v", result)
		}
	})

	t.Run("Cancelled Context Processes Nothing", func(t *testing.T) {
		svc := newMatchableService()
		b := newTestBatchMapper(svc, repositories.NewMemoryStore())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := b.MapSongs(ctx, testSongs(3), BatchOptions{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Successful != 0 || result.Failed != 0 {
			t.Errorf("expected nothing processed, got %+v", result)
		}
	})
}
