package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ellievs/covermatch/internal/formatter"
	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/shared"
	"github.com/ellievs/covermatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ResolveCover resolves the cover image URL for one song out of a catalog file.
func (r *Runner) ResolveCover(ctx context.Context, cmd *cli.Command) error {
	songs, err := loadSongs(cmd.String("songs"))
	if err != nil {
		return err
	}

	songID := cmd.String("id")
	var song *models.Song
	for i := range songs {
		if songs[i].ID == songID {
			song = &songs[i]
			break
		}
	}
	if song == nil {
		return fmt.Errorf("%w: song %s not found in catalog", shared.ErrInvalidInput, songID)
	}

	market := cmd.String("market")
	if market == "" {
		market = r.config.Mapping.Market
	}

	router := tasks.NewRouter(tasks.RouterOpts{
		Resolver: r.resolver(),
		Anime:    r.anime,
		Market:   market,
		Logger:   r.logger,
	})

	cover := router.ResolveCoverImage(ctx, song)
	if cover == "" {
		r.writePlainln("No cover image found for %q", song.Title)
		return nil
	}

	r.writePlain("%s\n", cover)

	if savePath := cmd.String("save"); savePath != "" {
		data, err := formatter.DownloadImage(cover)
		if err != nil {
			return fmt.Errorf("failed to download cover image: %w", err)
		}
		if err := os.WriteFile(savePath, data, 0644); err != nil {
			return fmt.Errorf("failed to save cover image: %w", err)
		}
		r.writePlainln("✓ Cover image saved to %s", savePath)
	}

	return nil
}

func coverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cover",
		Usage: "Resolve the cover image URL for a song",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "songs",
				Usage:    "Path to the song catalog JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Song ID to resolve",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "market",
				Usage: "Marketplace code for track lookups",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Download the cover image to this path",
			},
		},
		Action: r.ResolveCover,
	}
}
