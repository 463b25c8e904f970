package enrich

import (
	"time"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/datastore"
	"github.com/naturetrace/naturetrace-go/internal/gateway"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/speechfilter"
)

// Pipeline bundles the store, gateway and shared HTTP client the enrichment
// commands operate on.
type Pipeline struct {
	Settings *conf.Settings
	Store    datastore.Interface
	Gateway  *gateway.Gateway
	HTTP     *httpclient.Client
}

// NewPipeline opens the configured database and assembles the shared
// components. Callers own the returned pipeline and must Close it.
func NewPipeline(settings *conf.Settings) (*Pipeline, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}

	return &Pipeline{
		Settings: settings,
		Store:    store,
		Gateway:  gateway.New(store),
		HTTP:     httpclient.New(nil),
	}, nil
}

// Close releases the database connection and the HTTP client.
func (p *Pipeline) Close() error {
	p.HTTP.Close()
	return p.Store.Close()
}

// SoundEnricher builds the sound enrichment chain. stripSpeech enables
// narration removal through the configured whisper server.
func (p *Pipeline) SoundEnricher(stripSpeech bool) (*SoundEnricher, error) {
	chain, err := BuildSoundChain(p.Settings, p.HTTP)
	if err != nil {
		return nil, err
	}

	var filter SpeechFilter
	if stripSpeech {
		proc, err := BuildSpeechFilter(p.Settings, p.HTTP)
		if err != nil {
			return nil, err
		}
		filter = proc
	}

	maxDuration := time.Duration(p.Settings.Providers.FreeSound.MaxDuration) * time.Second
	return NewSoundEnricher(p.Store, chain, p.Gateway, filter, p.Settings.BatchDelay(), maxDuration), nil
}

// LocationEnricher builds the location enrichment chain.
func (p *Pipeline) LocationEnricher() (*LocationEnricher, error) {
	res, err := BuildLocationResolver(p.Settings, p.HTTP)
	if err != nil {
		return nil, err
	}
	return NewLocationEnricher(p.Store, res, p.Gateway, p.Settings.BatchDelay()), nil
}

// BuildSpeechFilter assembles the narration filter from the settings.
func BuildSpeechFilter(settings *conf.Settings, hc *httpclient.Client) (*speechfilter.Processor, error) {
	sf := settings.SpeechFilter

	stt, err := speechfilter.NewWhisperTranscriber(sf.ServerURL, sf.Language, hc)
	if err != nil {
		return nil, err
	}

	return speechfilter.NewProcessor(speechfilter.Config{
		MinSilence: time.Duration(sf.MinSilenceMs) * time.Millisecond,
		KeepPad:    time.Duration(sf.KeepSilenceMs) * time.Millisecond,
		JoinGap:    time.Duration(sf.GapMs) * time.Millisecond,
		MinResult:  time.Duration(sf.MinResultMs) * time.Millisecond,
		ScratchDir: sf.ScratchDir,
	}, stt, hc)
}
