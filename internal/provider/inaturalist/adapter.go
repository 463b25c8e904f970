package inaturalist

import (
	"context"

	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

// LocationAdapter exposes the client as a location resolver adapter.
type LocationAdapter struct {
	Client *Client
}

func (a *LocationAdapter) Name() string { return "inaturalist" }

func (a *LocationAdapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	return a.Client.SearchLocation(ctx, q)
}

// SoundAdapter exposes the client as a sound resolver adapter.
type SoundAdapter struct {
	Client *Client
}

func (a *SoundAdapter) Name() string { return "inaturalist" }

func (a *SoundAdapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	return a.Client.SearchSound(ctx, q)
}
