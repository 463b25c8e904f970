package speechfilter

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitOnSilence(t *testing.T) {
	c := &clip{sampleRate: testSampleRate, numChannels: 1, bitDepth: 16}

	tone := make([]int, testSampleRate)
	for i := range tone {
		tone[i] = toneAmplitude
	}
	longGap := make([]int, testSampleRate*8/10)  // 0.8s, splits
	shortGap := make([]int, testSampleRate*2/10) // 0.2s, bridged

	var samples []int
	samples = append(samples, tone...)
	samples = append(samples, longGap...)
	samples = append(samples, tone...)
	samples = append(samples, shortGap...)
	samples = append(samples, tone...)
	c.samples = samples

	threshold := c.averageDBFS() - thresholdOffsetDB
	segments := splitOnSilence(c, 500*time.Millisecond, 200*time.Millisecond, threshold)

	require.Len(t, segments, 2, "short gaps must not split segments")

	// First segment: tone plus trailing pad only, start clamped at zero
	assert.Equal(t, 0, segments[0].start)
	assert.InDelta(t, 1.2, segments[0].durationIn(c).Seconds(), 0.05)

	// Second segment spans both tones and the bridged gap plus padding
	assert.InDelta(t, 2.4, segments[1].durationIn(c).Seconds(), 0.05)
	assert.Equal(t, c.frames(), segments[1].end, "trailing pad clamps at the clip end")
}

func TestSplitOnSilenceAllSilent(t *testing.T) {
	c := &clip{
		samples:     make([]int, testSampleRate*2),
		sampleRate:  testSampleRate,
		numChannels: 1,
		bitDepth:    16,
	}

	segments := splitOnSilence(c, 500*time.Millisecond, 200*time.Millisecond, -40)
	assert.Empty(t, segments)
}

func TestJoinSegments(t *testing.T) {
	c := &clip{sampleRate: testSampleRate, numChannels: 1, bitDepth: 16}
	c.samples = make([]int, testSampleRate*3)
	for i := range c.samples {
		c.samples[i] = i + 1
	}

	segs := []segment{
		{start: 0, end: testSampleRate},
		{start: testSampleRate * 2, end: testSampleRate * 3},
	}
	joined := joinSegments(c, segs, 100*time.Millisecond)

	gap := testSampleRate / 10
	require.Len(t, joined, testSampleRate*2+gap)
	assert.Equal(t, 1, joined[0])
	assert.Equal(t, 0, joined[testSampleRate], "gap between segments is silent")
	assert.Equal(t, testSampleRate*2+1, joined[testSampleRate+gap])
}

func TestWindowDBFS(t *testing.T) {
	maxAmp := math.Pow(2, 15)

	full := []int{32768, -32768, 32768, -32768}
	assert.InDelta(t, 0, windowDBFS(full, maxAmp), 0.01)

	half := []int{16384, -16384, 16384, -16384}
	assert.InDelta(t, -6.02, windowDBFS(half, maxAmp), 0.05)

	assert.True(t, math.IsInf(windowDBFS([]int{0, 0, 0}, maxAmp), -1))
	assert.True(t, math.IsInf(windowDBFS(nil, maxAmp), -1))
}

func TestWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.wav")

	c := &clip{sampleRate: testSampleRate, numChannels: 1, bitDepth: 16}
	samples := make([]int, testSampleRate)
	for i := range samples {
		samples[i] = (i % 100) - 50
	}
	require.NoError(t, encodeWAVFile(path, c, samples))

	got, err := decodeWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, got.sampleRate)
	assert.Equal(t, 1, got.numChannels)
	assert.Equal(t, samples, got.samples)
	assert.Equal(t, time.Second, got.duration())
}
