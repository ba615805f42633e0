package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/repositories"
	"github.com/ellievs/covermatch/internal/services"
	"github.com/ellievs/covermatch/internal/shared"
	"github.com/ellievs/covermatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	spotify services.TrackService
	anime   services.ImageService
	store   models.MappingStore
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify services.TrackService
	Anime   services.ImageService
	Store   models.MappingStore
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Store == nil {
		opts.Store = repositories.NewMemoryStore()
	}

	return &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		anime:   opts.Anime,
		store:   opts.Store,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, mapCommand, mappingCommand, coverCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolver builds the resolution pipeline from the runner's dependencies.
func (r *Runner) resolver() *tasks.Resolver {
	return tasks.NewResolver(tasks.ResolverOpts{
		Spotify: r.spotify,
		Store:   r.store,
		Logger:  r.logger,
	})
}

// batchDelay returns the configured inter-window delay.
func (r *Runner) batchDelay() time.Duration {
	return time.Duration(r.config.Mapping.BatchDelayMS) * time.Millisecond
}

// loadSongs reads a song catalog from a JSON file.
func loadSongs(path string) ([]models.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read songs file: %w", err)
	}

	var songs []models.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("failed to parse songs file: %w", err)
	}

	return songs, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
