package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/shared"
)

const (
	defaultMarket        = "US"
	defaultBatchDelay    = 100 * time.Millisecond
	defaultMaxConcurrent = 3
)

// ProgressSnapshot is the state of a batch run after one song finishes.
type ProgressSnapshot struct {
	Total       int
	Completed   int
	Successful  int
	Failed      int
	CurrentSong *models.Song
}

// BatchOptions configures a batch mapping run.
type BatchOptions struct {
	// OnProgress is invoked once per processed song, after its outcome is
	// recorded. Invocations are serialized.
	OnProgress func(ProgressSnapshot)

	// Market is the marketplace code used for every resolution. Defaults to US.
	Market string

	// Delay is the pause between concurrency windows. Defaults to 100ms.
	Delay time.Duration

	// MaxConcurrent bounds the number of songs resolved at once. Defaults to 3.
	MaxConcurrent int
}

// BatchResult summarizes a finished batch run.
type BatchResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// BatchMapper drives song resolution over a whole catalog.
//
// Songs with an existing mapping are skipped up front, except manual
// overrides, which go through the normal pipeline so their window-time
// re-check can confirm them. The rest are resolved in fixed windows of
// MaxConcurrent with a pause between windows.
type BatchMapper struct {
	resolver *Resolver
	logger   *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// BatchMapperOpts contains configuration options for creating a BatchMapper.
type BatchMapperOpts struct {
	Resolver *Resolver
	Logger   *log.Logger
}

// NewBatchMapper creates a new BatchMapper with the provided options.
func NewBatchMapper(opts BatchMapperOpts) *BatchMapper {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &BatchMapper{
		resolver: opts.Resolver,
		logger:   opts.Logger,
		sleep:    sleepBetweenWindows,
	}
}

func sleepBetweenWindows(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MapSongs resolves every song in the catalog that does not already have a
// mapping.
//
// Cancellation is checked between windows; a cancelled run returns the
// partial result together with the context's error. Per-song failures are
// counted, logged and never abort the run.
func (b *BatchMapper) MapSongs(ctx context.Context, songs []models.Song, opts BatchOptions) (BatchResult, error) {
	if opts.Market == "" {
		opts.Market = defaultMarket
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultBatchDelay
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}

	logger := shared.WithLogger(b.logger, "run_id", shared.GenerateID())
	logger.Info("starting batch mapping",
		"songs", len(songs), "market", opts.Market, "concurrency", opts.MaxConcurrent)

	var (
		mu        sync.Mutex
		result    BatchResult
		completed int
	)

	// Pre-pass: already-mapped songs never enter a window. Manual overrides
	// stay queued so their mappings are re-confirmed during the run.
	queue := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		existing := b.resolver.Mapping(song.ID)
		if existing != nil && !existing.ManualOverride {
			result.Skipped++
			completed++
			continue
		}
		queue = append(queue, song)
	}

	total := len(songs)

	processSong := func(ctx context.Context, song models.Song) {
		var succeeded, skipped bool

		// Re-check under concurrency: another window slot or an earlier run
		// may have mapped this song since the pre-pass.
		if existing := b.resolver.Mapping(song.ID); existing != nil {
			skipped = true
		} else {
			mapping, err := b.resolver.SearchAndMap(ctx, song, opts.Market)
			if err != nil {
				logger.Warn("song resolution failed", "song_id", song.ID, "error", err)
			}
			succeeded = err == nil && mapping != nil
		}

		mu.Lock()
		defer mu.Unlock()

		completed++
		switch {
		case skipped:
			result.Skipped++
		case succeeded:
			result.Successful++
		default:
			result.Failed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(ProgressSnapshot{
				Total:       total,
				Completed:   completed,
				Successful:  result.Successful,
				Failed:      result.Failed,
				CurrentSong: &song,
			})
		}
	}

	for start := 0; start < len(queue); start += opts.MaxConcurrent {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch mapping cancelled", "completed", completed, "total", total)
			return result, err
		}

		end := start + opts.MaxConcurrent
		if end > len(queue) {
			end = len(queue)
		}

		var wg sync.WaitGroup
		for _, song := range queue[start:end] {
			wg.Add(1)
			go func(song models.Song) {
				defer wg.Done()
				processSong(ctx, song)
			}(song)
		}
		wg.Wait()

		if end < len(queue) {
			if err := b.sleep(ctx, opts.Delay); err != nil {
				logger.Warn("batch mapping cancelled", "completed", completed, "total", total)
				return result, err
			}
		}
	}

	logger.Info("batch mapping finished",
		"successful", result.Successful, "failed", result.Failed, "skipped", result.Skipped)

	return result, nil
}
