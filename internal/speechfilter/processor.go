// Package speechfilter removes human narration from downloaded wildlife
// recordings. The audio is split on silence, each segment is transcribed,
// narrated segments are dropped and the remainder is rejoined. Segments the
// transcriber cannot handle are kept: losing an animal call is worse than
// keeping a stray word.
package speechfilter

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "speechfilter.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "speechfilter", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize speechfilter file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "speechfilter")
		closeLogger = func() error { return nil }
	}
}

// Silence detection defaults, matched to typical field recordings.
const (
	// thresholdOffsetDB puts the silence threshold below the track's
	// average loudness, adapting to quiet and loud recordings alike.
	thresholdOffsetDB = 14.0

	defaultMinSilence = 500 * time.Millisecond
	defaultKeepPad    = 200 * time.Millisecond
	defaultJoinGap    = 100 * time.Millisecond
	defaultMinResult  = 1 * time.Second
)

// Config holds the processor configuration.
type Config struct {
	MinSilence time.Duration // silence length that splits segments
	KeepPad    time.Duration // silence padding retained around segments
	JoinGap    time.Duration // silence inserted between rejoined segments
	MinResult  time.Duration // shorter filtered results are rejected
	ScratchDir string        // working directory, system temp when empty
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		MinSilence: defaultMinSilence,
		KeepPad:    defaultKeepPad,
		JoinGap:    defaultJoinGap,
		MinResult:  defaultMinResult,
	}
}

// Processor downloads, segments, transcribes and reassembles recordings.
type Processor struct {
	config Config
	stt    Transcriber
	http   *httpclient.Client
}

// NewProcessor creates a processor using the given transcriber.
func NewProcessor(config Config, stt Transcriber, hc *httpclient.Client) (*Processor, error) {
	if stt == nil {
		return nil, errors.Newf("transcriber is required").
			Category(errors.CategoryConfiguration).
			Component("speechfilter").
			Build()
	}
	def := DefaultConfig()
	if config.MinSilence <= 0 {
		config.MinSilence = def.MinSilence
	}
	if config.KeepPad <= 0 {
		config.KeepPad = def.KeepPad
	}
	if config.JoinGap <= 0 {
		config.JoinGap = def.JoinGap
	}
	if config.MinResult <= 0 {
		config.MinResult = def.MinResult
	}
	if config.ScratchDir == "" {
		config.ScratchDir = os.TempDir()
	}
	if hc == nil {
		hc = httpclient.New(nil)
	}
	return &Processor{config: config, stt: stt, http: hc}, nil
}

// Result summarizes one processing run.
type Result struct {
	// Path is the filtered WAV file.
	Path string
	// SegmentsKept and SegmentsDropped count voiced segments.
	SegmentsKept    int
	SegmentsDropped int
	// InputDuration and OutputDuration measure the audio before and after.
	InputDuration  time.Duration
	OutputDuration time.Duration
}

// Analysis describes the speech/animal composition of a recording without
// modifying it.
type Analysis struct {
	TotalDuration  time.Duration
	SpeechDuration time.Duration
	AnimalDuration time.Duration
	SpeechRatio    float64
	AnimalRatio    float64
	// QualityScore is AnimalRatio scaled to 0-100.
	QualityScore float64
	// Recommended is true when the clip is mostly animal sound.
	Recommended bool
	Segments    int
}

// Process downloads the recording, removes narrated segments and writes the
// remainder to a new WAV file in the scratch directory. It fails when the
// filtered result is shorter than MinResult; callers fall back to the
// original URL in that case.
func (p *Processor) Process(ctx context.Context, audioURL, subject string) (*Result, error) {
	runID := uuid.New().String()[:8]

	path, cleanup, err := p.fetch(ctx, audioURL, runID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	c, err := decodeWAVFile(path)
	if err != nil {
		return nil, err
	}

	threshold := c.averageDBFS() - thresholdOffsetDB
	segments := splitOnSilence(c, p.config.MinSilence, p.config.KeepPad, threshold)
	if len(segments) == 0 {
		return nil, errors.Newf("no voiced segments detected").
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("subject", subject).
			Build()
	}

	kept := make([]segment, 0, len(segments))
	dropped := 0
	for i, seg := range segments {
		narrated, err := p.classify(ctx, c, seg, runID, i)
		if err != nil {
			// Transient STT failure: keep the segment rather than risk
			// discarding the animal call
			logger.Warn("transcription failed, keeping segment",
				"run_id", runID,
				"segment", i,
				"error", err)
			kept = append(kept, seg)
			continue
		}
		if narrated {
			dropped++
			continue
		}
		kept = append(kept, seg)
	}

	joined := joinSegments(c, kept, p.config.JoinGap)
	outputDuration := time.Duration(len(joined)/max(c.numChannels, 1)) * time.Second / time.Duration(c.sampleRate)

	if outputDuration < p.config.MinResult {
		return nil, errors.Newf("filtered audio too short (%s)", outputDuration).
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("subject", subject).
			Context("segments_dropped", dropped).
			Build()
	}

	outPath := filepath.Join(p.config.ScratchDir, fmt.Sprintf("filtered_%s_%s.wav", sanitize(subject), runID))
	if err := encodeWAVFile(outPath, c, joined); err != nil {
		return nil, err
	}

	logger.Info("speech filtering completed",
		"run_id", runID,
		"subject", subject,
		"segments_kept", len(kept),
		"segments_dropped", dropped,
		"input_duration", c.duration(),
		"output_duration", outputDuration)

	return &Result{
		Path:            outPath,
		SegmentsKept:    len(kept),
		SegmentsDropped: dropped,
		InputDuration:   c.duration(),
		OutputDuration:  outputDuration,
	}, nil
}

// Analyze reports the speech/animal composition of a recording.
func (p *Processor) Analyze(ctx context.Context, audioURL, subject string) (*Analysis, error) {
	runID := uuid.New().String()[:8]

	path, cleanup, err := p.fetch(ctx, audioURL, runID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	c, err := decodeWAVFile(path)
	if err != nil {
		return nil, err
	}

	threshold := c.averageDBFS() - thresholdOffsetDB
	segments := splitOnSilence(c, p.config.MinSilence, p.config.KeepPad, threshold)

	analysis := &Analysis{
		TotalDuration: c.duration(),
		Segments:      len(segments),
	}

	var voiced time.Duration
	for i, seg := range segments {
		segDur := seg.durationIn(c)
		voiced += segDur

		narrated, err := p.classify(ctx, c, seg, runID, i)
		if err != nil || !narrated {
			analysis.AnimalDuration += segDur
			continue
		}
		analysis.SpeechDuration += segDur
	}

	if voiced > 0 {
		analysis.SpeechRatio = float64(analysis.SpeechDuration) / float64(voiced)
		analysis.AnimalRatio = float64(analysis.AnimalDuration) / float64(voiced)
	}
	analysis.QualityScore = analysis.AnimalRatio * 100
	analysis.Recommended = analysis.AnimalRatio > 0.7

	return analysis, nil
}

// classify transcribes one segment and decides whether it is narration.
func (p *Processor) classify(ctx context.Context, c *clip, seg segment, runID string, idx int) (bool, error) {
	segPath := filepath.Join(p.config.ScratchDir, fmt.Sprintf("segment_%s_%d.wav", runID, idx))
	if err := encodeWAVFile(segPath, c, seg.samplesOf(c)); err != nil {
		return false, err
	}
	defer func() { _ = os.Remove(segPath) }()

	wavData, err := os.ReadFile(segPath)
	if err != nil {
		return false, errors.Newf("failed to read segment file: %w", err).
			Category(errors.CategoryFileIO).
			Component("speechfilter").
			Build()
	}

	transcript, err := p.stt.Transcribe(ctx, wavData)
	if err != nil {
		return false, err
	}

	narrated := IsNarration(transcript)
	logger.Debug("segment classified",
		"run_id", runID,
		"segment", idx,
		"narrated", narrated,
		"transcript_len", len(transcript))
	return narrated, nil
}

// fetch downloads a remote recording into the scratch directory, or returns
// local paths as-is with a no-op cleanup.
func (p *Processor) fetch(ctx context.Context, audioURL, runID string) (string, func(), error) {
	parsed, err := url.Parse(audioURL)
	if err != nil || parsed.Scheme == "" || parsed.Scheme == "file" {
		local := strings.TrimPrefix(audioURL, "file://")
		if _, statErr := os.Stat(local); statErr != nil {
			return "", nil, errors.Newf("audio file not accessible: %w", statErr).
				Category(errors.CategoryFileIO).
				Component("speechfilter").
				Context("path", local).
				Build()
		}
		return local, func() {}, nil
	}

	resp, err := p.http.Get(ctx, audioURL)
	if err != nil {
		return "", nil, errors.Newf("failed to download audio: %w", err).
			Category(errors.CategoryNetwork).
			Component("speechfilter").
			Context("url", audioURL).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil, errors.Newf("audio download failed (status %d)", resp.StatusCode).
			Category(errors.CategoryNetwork).
			Component("speechfilter").
			Context("url", audioURL).
			Context("status_code", resp.StatusCode).
			Build()
	}

	path := filepath.Join(p.config.ScratchDir, fmt.Sprintf("download_%s.wav", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", nil, errors.Newf("failed to create scratch file: %w", err).
			Category(errors.CategoryFileIO).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, errors.Newf("failed to write scratch file: %w", err).
			Category(errors.CategoryFileIO).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	_ = f.Close()

	return path, func() { _ = os.Remove(path) }, nil
}

// sanitize turns a subject into a safe filename fragment.
func sanitize(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "audio"
	}
	return b.String()
}
