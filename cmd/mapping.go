package main

import (
	"context"
	"fmt"

	"github.com/ellievs/covermatch/internal/formatter"
	"github.com/ellievs/covermatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// MappingList writes every stored mapping as JSON.
func (r *Runner) MappingList(ctx context.Context, cmd *cli.Command) error {
	mappings := r.resolver().AllMappings()
	if len(mappings) == 0 {
		r.writePlainln("No mappings stored.")
		return nil
	}
	return r.writeJSON(mappings, cmd.Bool("pretty"))
}

// MappingDelete removes the mapping for a song ID.
func (r *Runner) MappingDelete(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("id")
	if err := r.resolver().DeleteMapping(songID); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	r.writePlainln("✓ Mapping deleted for song %s", songID)
	return nil
}

// MappingClear removes every stored mapping.
func (r *Runner) MappingClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.resolver().ClearMappings(); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	r.writePlainln("✓ All mappings cleared")
	return nil
}

// MappingExport writes every stored mapping to a file.
func (r *Runner) MappingExport(ctx context.Context, cmd *cli.Command) error {
	mappings := r.resolver().AllMappings()
	if len(mappings) == 0 {
		r.writePlainln("No mappings to export.")
		return nil
	}

	path, err := formatter.WriteExport(mappings, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d mappings to %s", len(mappings), path)
	return nil
}

// MappingSet pins a song to a specific track.
func (r *Runner) MappingSet(ctx context.Context, cmd *cli.Command) error {
	market := cmd.String("market")
	if market == "" {
		market = r.config.Mapping.Market
	}

	mapping, err := r.resolver().SetMapping(ctx, cmd.String("song-id"), cmd.String("track-id"), cmd.Bool("override"), market)
	if err != nil {
		return err
	}
	if mapping == nil {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, cmd.String("track-id"))
	}

	return r.writeJSON(mapping, true)
}

func mappingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mapping",
		Usage: "Inspect and administer stored mappings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all stored mappings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print the JSON output",
					},
				},
				Action: r.MappingList,
			},
			{
				Name:  "delete",
				Usage: "Delete the mapping for a song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Song ID",
						Required: true,
					},
				},
				Action: r.MappingDelete,
			},
			{
				Name:  "export",
				Usage: "Export all mappings to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text, json",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.MappingExport,
			},
			{
				Name:   "clear",
				Usage:  "Delete every stored mapping",
				Action: r.MappingClear,
			},
			{
				Name:  "set",
				Usage: "Pin a song to a specific track",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song-id",
						Usage:    "Song ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "track-id",
						Usage:    "Track ID to pin",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "override",
						Usage: "Mark the mapping as a manual override",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "market",
						Usage: "Marketplace code for the track lookup",
					},
				},
				Action: r.MappingSet,
			},
		},
	}
}
