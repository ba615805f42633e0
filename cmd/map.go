package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/shared"
	"github.com/ellievs/covermatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MapBatch resolves every song in a catalog file against the track backend.
func (r *Runner) MapBatch(ctx context.Context, cmd *cli.Command) error {
	songs, err := loadSongs(cmd.String("songs"))
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return fmt.Errorf("%w: songs file is empty", shared.ErrInvalidInput)
	}

	if !r.spotify.IsConfigured() {
		return fmt.Errorf("%w: spotify credentials are required for batch mapping", shared.ErrMissingCredentials)
	}

	market := cmd.String("market")
	if market == "" {
		market = r.config.Mapping.Market
	}
	concurrency := cmd.Int("concurrency")
	if concurrency <= 0 {
		concurrency = r.config.Mapping.MaxConcurrent
	}
	delay := time.Duration(cmd.Int("delay")) * time.Millisecond
	if delay <= 0 {
		delay = r.batchDelay()
	}

	mapper := tasks.NewBatchMapper(tasks.BatchMapperOpts{
		Resolver: r.resolver(),
		Logger:   r.logger,
	})

	result, err := mapper.MapSongs(ctx, songs, tasks.BatchOptions{
		Market:        market,
		Delay:         delay,
		MaxConcurrent: concurrency,
		OnProgress: func(s tasks.ProgressSnapshot) {
			r.logger.Info("progress",
				"completed", s.Completed, "total", s.Total,
				"successful", s.Successful, "failed", s.Failed,
				"song", s.CurrentSong.Title)
		},
	})
	if err != nil {
		return fmt.Errorf("batch mapping aborted: %w", err)
	}

	r.writePlainln("✓ Batch mapping complete")
	r.writePlain("  Successful: %d\n", result.Successful)
	r.writePlain("  Failed:     %d\n", result.Failed)
	r.writePlain("  Skipped:    %d\n", result.Skipped)

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// MapSong resolves a single song described by flags.
func (r *Runner) MapSong(ctx context.Context, cmd *cli.Command) error {
	song := models.Song{
		ID:     cmd.String("id"),
		Title:  cmd.String("title"),
		Artist: cmd.String("artist"),
		Year:   cmd.Int("year"),
	}

	market := cmd.String("market")
	if market == "" {
		market = r.config.Mapping.Market
	}

	mapping, err := r.resolver().SearchAndMap(ctx, song, market)
	if err != nil {
		return err
	}
	if mapping == nil {
		r.writePlainln("No confident match found for %q", song.Title)
		return nil
	}

	return r.writeJSON(mapping, true)
}

func mapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Resolve songs to tracks",
		Commands: []*cli.Command{
			{
				Name:  "batch",
				Usage: "Map a whole song catalog from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "songs",
						Usage:    "Path to the song catalog JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "market",
						Usage: "Marketplace code for track lookups",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Songs resolved at once",
					},
					&cli.IntFlag{
						Name:  "delay",
						Usage: "Milliseconds between concurrency windows",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print the result JSON",
					},
				},
				Action: r.MapBatch,
			},
			{
				Name:  "song",
				Usage: "Map a single song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Song ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Song title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Song artist",
					},
					&cli.IntFlag{
						Name:  "year",
						Usage: "Release year",
					},
					&cli.StringFlag{
						Name:  "market",
						Usage: "Marketplace code for track lookups",
					},
				},
				Action: r.MapSong,
			},
		},
	}
}
