// Package analyze implements the recording composition report.
package analyze

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/enrich"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
)

var subject string

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url-or-path]",
		Short: "Report the speech/animal composition of a recording",
		Long: "Downloads (or opens) a WAV recording, segments it on silence, " +
			"transcribes each segment and reports how much of the audio is " +
			"human narration versus animal sound.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0])
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "recording", "subject name used in logs and scratch file names")

	return cmd
}

func run(settings *conf.Settings, audioURL string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := httpclient.New(nil)
	defer hc.Close()

	processor, err := enrich.BuildSpeechFilter(settings, hc)
	if err != nil {
		return err
	}

	analysis, err := processor.Analyze(ctx, audioURL, subject)
	if err != nil {
		return err
	}

	fmt.Printf("Duration:      %.1fs\n", analysis.TotalDuration.Seconds())
	fmt.Printf("Segments:      %d\n", analysis.Segments)
	fmt.Printf("Animal sound:  %.1fs (%.0f%%)\n", analysis.AnimalDuration.Seconds(), analysis.AnimalRatio*100)
	fmt.Printf("Human speech:  %.1fs (%.0f%%)\n", analysis.SpeechDuration.Seconds(), analysis.SpeechRatio*100)
	fmt.Printf("Quality score: %.0f/100\n", analysis.QualityScore)

	if analysis.Recommended {
		fmt.Println("✅ Recording is mostly animal sound, usable as-is")
	} else {
		fmt.Println("⚠️ Recording carries significant narration, consider --strip-speech")
	}

	return nil
}
