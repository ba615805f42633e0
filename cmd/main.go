package main

import (
	"context"
	"os"

	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/repositories"
	"github.com/ellievs/covermatch/internal/services"
	"github.com/ellievs/covermatch/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	spotify := services.NewSpotifyClient(services.SpotifyClientOpts{
		ClientID:     config.Credentials.Spotify.ClientID,
		ClientSecret: config.Credentials.Spotify.ClientSecret,
		Retries:      config.Mapping.RequestRetries,
		Logger:       logger,
	})

	anime := services.NewJikanClient(services.JikanClientOpts{
		BaseURL:           config.Credentials.Jikan.BaseURL,
		RequestsPerSecond: config.Credentials.Jikan.RequestsPerSecond,
		Logger:            logger,
	})

	var store models.MappingStore
	if db, err := shared.NewDatabase(config.Database.Path); err == nil {
		defer db.Close()
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		store = repositories.NewMappingRepository(db)
	} else {
		logger.Warn("database unavailable, mappings will not persist", "path", config.Database.Path, "error", err)
		store = repositories.NewMemoryStore()
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Spotify: spotify,
		Anime:   anime,
		Store:   store,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "covermatch",
		Usage:    "Match a song catalog to Spotify tracks and cover art",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
