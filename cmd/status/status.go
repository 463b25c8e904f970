// Package status implements the enrichment coverage report.
package status

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/datastore"
)

func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sound and location enrichment coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
}

func run(settings *conf.Settings) error {
	store, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cov, err := store.SoundCoverage()
	if err != nil {
		return err
	}

	fmt.Printf("Animal records: %d\n\n", cov.Total)
	fmt.Printf("🔊 With sound:    %4d / %d (%.1f%%)\n", cov.WithSound, cov.Total, cov.SoundPercent())
	fmt.Printf("📍 With location: %4d / %d (%.1f%%)\n", cov.WithLocation, cov.Total, cov.LocationPercent())

	if len(cov.BySource) > 0 {
		fmt.Println("\nSounds by source:")
		sources := make([]string, 0, len(cov.BySource))
		for s := range cov.BySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			fmt.Printf("  %-28s %d\n", s, cov.BySource[s])
		}
	}

	if len(cov.RecentSounds) > 0 {
		fmt.Println("\nRecently updated:")
		for i := range cov.RecentSounds {
			a := &cov.RecentSounds[i]
			when := ""
			if a.SoundUpdated != nil {
				when = a.SoundUpdated.Format("2006-01-02 15:04")
			}
			fmt.Printf("  %-24s %-16s %s\n", a.Name, a.SoundSource, when)
		}
	}

	return nil
}
