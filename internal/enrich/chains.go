package enrich

import (
	"time"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/provider/freesound"
	"github.com/naturetrace/naturetrace-go/internal/provider/geocode"
	"github.com/naturetrace/naturetrace-go/internal/provider/groq"
	"github.com/naturetrace/naturetrace-go/internal/provider/inaturalist"
	"github.com/naturetrace/naturetrace-go/internal/provider/wikipedia"
	"github.com/naturetrace/naturetrace-go/internal/provider/xenocanto"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

// SoundChain holds the sound resolver in both trust orders. Mammal subjects
// are better covered by observation databases than by the bird-centric
// recording archives, so they get an iNaturalist-first chain.
type SoundChain struct {
	standard    *resolver.Resolver[resolver.Media]
	mammalFirst *resolver.Resolver[resolver.Media]
}

// For picks the resolver matching the subject's category.
func (c *SoundChain) For(cat resolver.Category) *resolver.Resolver[resolver.Media] {
	if cat == resolver.CategoryMammal {
		return c.mammalFirst
	}
	return c.standard
}

// BuildSoundChain assembles the sound adapters from the settings. FreeSound
// is skipped when no API key is configured.
func BuildSoundChain(settings *conf.Settings, hc *httpclient.Client) (*SoundChain, error) {
	xc := &xenocanto.Adapter{Client: xenocanto.NewClient(xenocanto.Config{
		BaseURL: settings.Providers.XenoCanto.Endpoint,
	}, hc)}

	inat := &inaturalist.SoundAdapter{Client: inaturalist.NewClient(inaturalist.Config{
		BaseURL: settings.Providers.INaturalist.Endpoint,
		PerPage: settings.Providers.INaturalist.PerPage,
	}, hc)}

	standard := []resolver.Adapter[resolver.Media]{xc}
	if settings.Providers.FreeSound.APIKey != "" {
		fsClient, err := freesound.NewClient(freesound.Config{
			BaseURL:     settings.Providers.FreeSound.Endpoint,
			APIKey:      settings.Providers.FreeSound.APIKey,
			PageSize:    settings.Providers.FreeSound.PageSize,
			MaxDuration: settings.Providers.FreeSound.MaxDuration,
		}, hc)
		if err != nil {
			return nil, err
		}
		standard = append(standard, &freesound.Adapter{Client: fsClient})
	}
	standard = append(standard, inat)

	mammal := make([]resolver.Adapter[resolver.Media], 0, len(standard))
	mammal = append(mammal, inat)
	mammal = append(mammal, standard[:len(standard)-1]...)

	std, err := resolver.New(standard...)
	if err != nil {
		return nil, err
	}
	mam, err := resolver.New(mammal...)
	if err != nil {
		return nil, err
	}
	return &SoundChain{standard: std, mammalFirst: mam}, nil
}

// BuildLocationResolver assembles the location adapter chain from the
// settings: observation data first, then encyclopedia text mining, then the
// generative fallback. Groq is skipped when no API key is configured.
func BuildLocationResolver(settings *conf.Settings, hc *httpclient.Client) (*resolver.Resolver[resolver.Location], error) {
	adapters := []resolver.Adapter[resolver.Location]{
		&inaturalist.LocationAdapter{Client: inaturalist.NewClient(inaturalist.Config{
			BaseURL: settings.Providers.INaturalist.Endpoint,
			PerPage: settings.Providers.INaturalist.PerPage,
		}, hc)},
		&wikipedia.LocationAdapter{
			Wiki: wikipedia.NewClient(wikipedia.Config{
				BaseURL:   settings.Providers.Wikipedia.Endpoint,
				RateLimit: settings.Providers.Wikipedia.RateLimit,
			}, hc),
			Geo: geocode.NewClient(geocode.Config{
				BaseURL: settings.Providers.Geocode.Endpoint,
			}, hc),
		},
	}

	if settings.Providers.Groq.APIKey != "" {
		groqClient, err := groq.NewClient(groq.Config{
			BaseURL: settings.Providers.Groq.Endpoint,
			APIKey:  settings.Providers.Groq.APIKey,
			Model:   settings.Providers.Groq.Model,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, &groq.Adapter{Client: groqClient})
	}

	return resolver.New(adapters...)
}

// queryFor builds the provider query for one animal record.
func queryFor(name, category string, maxDuration time.Duration) resolver.Query {
	return resolver.Query{
		Subject:     name,
		Category:    resolver.GuessCategory(name, category),
		MaxDuration: maxDuration,
	}
}
