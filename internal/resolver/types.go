package resolver

// Media is the normalized result of a sound resolution.
type Media struct {
	// URL is a directly playable audio URL (or a local file path after
	// speech filtering).
	URL string
	// Source names the provider the URL came from.
	Source string
	// Metadata carries provider specific extras (quality grade, license,
	// recording length) for logging and debugging.
	Metadata map[string]any
}

// Location is the normalized result of a location resolution. Latitude and
// Longitude are always set together.
type Location struct {
	Latitude  float64
	Longitude float64
	// LocationString is a human readable habitat or region description.
	LocationString string
	// PlaceGuess is the provider's place name, suffixed with the source,
	// e.g. "Yellowstone National Park (iNaturalist)".
	PlaceGuess string
	// Source names the provider the coordinates came from.
	Source string
}

// Valid reports whether the coordinate pair is inside the WGS84 envelope.
func (l *Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180 &&
		!(l.Latitude == 0 && l.Longitude == 0)
}
