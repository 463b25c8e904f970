package speechfilter

import (
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/naturetrace/naturetrace-go/internal/errors"
)

// clip holds decoded PCM audio. Samples are interleaved when the clip has
// more than one channel.
type clip struct {
	samples     []int
	sampleRate  int
	numChannels int
	bitDepth    int
}

// frames returns the number of per-channel sample frames.
func (c *clip) frames() int {
	if c.numChannels == 0 {
		return 0
	}
	return len(c.samples) / c.numChannels
}

// duration returns the clip length.
func (c *clip) duration() time.Duration {
	if c.sampleRate == 0 {
		return 0
	}
	return time.Duration(c.frames()) * time.Second / time.Duration(c.sampleRate)
}

// maxAmplitude returns the full-scale amplitude for the clip's bit depth.
func (c *clip) maxAmplitude() float64 {
	bits := c.bitDepth
	if bits == 0 {
		bits = 16
	}
	return math.Pow(2, float64(bits-1))
}

// decodeWAVFile reads a WAV file into a clip.
func decodeWAVFile(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Newf("failed to open audio file: %w", err).
			Category(errors.CategoryFileIO).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.Newf("failed to decode WAV data: %w", err).
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, errors.Newf("WAV file contains no audio data").
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("path", path).
			Build()
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}

	return &clip{
		samples:     buf.Data,
		sampleRate:  buf.Format.SampleRate,
		numChannels: buf.Format.NumChannels,
		bitDepth:    bitDepth,
	}, nil
}

// encodeWAVFile writes samples with the clip's format to a WAV file.
func encodeWAVFile(path string, c *clip, samples []int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Newf("failed to create audio file: %w", err).
			Category(errors.CategoryFileIO).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	bitDepth := c.bitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	encoder := wav.NewEncoder(f, c.sampleRate, bitDepth, c.numChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: c.numChannels, SampleRate: c.sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(buf); err != nil {
		return errors.Newf("failed to encode WAV data: %w", err).
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	if err := encoder.Close(); err != nil {
		return errors.Newf("failed to finalize WAV file: %w", err).
			Category(errors.CategoryAudio).
			Component("speechfilter").
			Context("path", path).
			Build()
	}
	return nil
}

// windowDBFS computes the loudness of one interleaved sample window in dB
// relative to full scale. Silence approaches negative infinity.
func windowDBFS(samples []int, maxAmp float64) float64 {
	if len(samples) == 0 || maxAmp == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/maxAmp)
}

// averageDBFS computes the loudness of the whole clip.
func (c *clip) averageDBFS() float64 {
	return windowDBFS(c.samples, c.maxAmplitude())
}

// segment is a half-open frame range [start, end) within a clip.
type segment struct {
	start int
	end   int
}

// samplesOf returns the interleaved samples covered by the segment.
func (s segment) samplesOf(c *clip) []int {
	return c.samples[s.start*c.numChannels : s.end*c.numChannels]
}

// durationIn returns the segment length within the clip.
func (s segment) durationIn(c *clip) time.Duration {
	return time.Duration(s.end-s.start) * time.Second / time.Duration(c.sampleRate)
}

// analysisWindow is the silence detector's resolution.
const analysisWindow = 10 * time.Millisecond

// splitOnSilence divides the clip into voiced segments separated by silences
// of at least minSilence whose loudness stays below thresholdDB. Each
// segment keeps up to keepSilence of padding on both sides.
func splitOnSilence(c *clip, minSilence, keepSilence time.Duration, thresholdDB float64) []segment {
	totalFrames := c.frames()
	if totalFrames == 0 {
		return nil
	}

	windowFrames := int(time.Duration(c.sampleRate) * analysisWindow / time.Second)
	if windowFrames < 1 {
		windowFrames = 1
	}
	maxAmp := c.maxAmplitude()

	// Classify each analysis window
	numWindows := (totalFrames + windowFrames - 1) / windowFrames
	silent := make([]bool, numWindows)
	for w := 0; w < numWindows; w++ {
		start := w * windowFrames * c.numChannels
		end := min((w+1)*windowFrames*c.numChannels, len(c.samples))
		silent[w] = windowDBFS(c.samples[start:end], maxAmp) < thresholdDB
	}

	minSilenceWindows := int(minSilence / analysisWindow)
	if minSilenceWindows < 1 {
		minSilenceWindows = 1
	}
	padFrames := int(time.Duration(c.sampleRate) * keepSilence / time.Second)

	// Collect voiced ranges, treating short silences as part of the voice
	var segments []segment
	segStart := -1
	silenceRun := 0
	for w := 0; w <= numWindows; w++ {
		atEnd := w == numWindows
		isSilent := atEnd || silent[w]

		switch {
		case !isSilent && segStart < 0:
			segStart = w
			silenceRun = 0
		case !isSilent:
			silenceRun = 0
		case segStart >= 0:
			silenceRun++
			if silenceRun >= minSilenceWindows || atEnd {
				endWindow := w - silenceRun + 1
				seg := segment{
					start: max(segStart*windowFrames-padFrames, 0),
					end:   min(endWindow*windowFrames+padFrames, totalFrames),
				}
				if seg.end > seg.start {
					segments = append(segments, seg)
				}
				segStart = -1
				silenceRun = 0
			}
		}
	}

	return segments
}

// joinSegments concatenates the given segments with gap silence in between.
func joinSegments(c *clip, segments []segment, gap time.Duration) []int {
	gapSamples := make([]int, int(time.Duration(c.sampleRate)*gap/time.Second)*c.numChannels)

	var out []int
	for i, seg := range segments {
		if i > 0 {
			out = append(out, gapSamples...)
		}
		out = append(out, seg.samplesOf(c)...)
	}
	return out
}
