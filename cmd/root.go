package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naturetrace/naturetrace-go/cmd/analyze"
	"github.com/naturetrace/naturetrace-go/cmd/location"
	"github.com/naturetrace/naturetrace-go/cmd/sound"
	"github.com/naturetrace/naturetrace-go/cmd/status"
	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "naturetrace",
		Short:   "NatureTrace enrichment CLI",
		Version: settings.Version,
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		sound.Command(settings),
		location.Command(settings),
		status.Command(settings),
		analyze.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
