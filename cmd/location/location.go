// Package location implements the location enrichment subcommand.
package location

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/enrich"
)

var (
	missing bool
	limit   int
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location [name]",
		Short: "Resolve geographic locations for animal records",
		Long: "Looks up coordinates and a habitat description for one animal by " +
			"name, or for every record missing them with --missing, trying " +
			"observation data, encyclopedia text mining and the generative " +
			"fallback in that order.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !missing && len(args) == 0 {
				return fmt.Errorf("provide an animal name or use --missing")
			}
			return run(settings, args)
		},
	}

	cmd.Flags().BoolVar(&missing, "missing", false, "enrich every record without coordinates")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum records to process in a batch (0 = all)")

	return cmd
}

func run(settings *conf.Settings, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := enrich.NewPipeline(settings)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	enricher, err := pipeline.LocationEnricher()
	if err != nil {
		return err
	}

	if missing {
		stats, err := enricher.Run(ctx, limit)
		if stats != nil {
			printStats(stats)
		}
		return err
	}

	animal, err := pipeline.Store.GetByName(args[0])
	if err != nil {
		return err
	}
	if _, err := enricher.EnrichOne(ctx, animal); err != nil {
		return err
	}

	updated, err := pipeline.Store.Get(animal.ID)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s: %.4f, %.4f %s\n",
		updated.Name, *updated.Latitude, *updated.Longitude, updated.PlaceGuess)
	return nil
}

func printStats(stats *enrich.Stats) {
	fmt.Printf("\nProcessed: %d  Updated: %d  No data: %d  Failed: %d\n",
		stats.Processed, stats.Updated, stats.NoData, stats.Failed)

	if len(stats.Sources) == 0 {
		return
	}
	sources := make([]string, 0, len(stats.Sources))
	for s := range stats.Sources {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	fmt.Println("By source:")
	for _, s := range sources {
		fmt.Printf("  %-28s %d\n", s, stats.Sources[s])
	}
}
