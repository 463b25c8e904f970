package inaturalist

// observationResponse is the envelope of the /observations endpoint.
type observationResponse struct {
	TotalResults int           `json:"total_results"`
	Results      []observation `json:"results"`
}

// observation is the subset of observation fields the client uses.
type observation struct {
	ID         int               `json:"id"`
	PlaceGuess string            `json:"place_guess"`
	Geojson    *geojson          `json:"geojson"`
	Taxon      taxon             `json:"taxon"`
	Sounds     []soundAttachment `json:"sounds"`
}

// geojson holds a point geometry; coordinates are [longitude, latitude].
type geojson struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type taxon struct {
	Name                string `json:"name"`
	PreferredCommonName string `json:"preferred_common_name"`
	IconicTaxonName     string `json:"iconic_taxon_name"`
}

type soundAttachment struct {
	FileURL     string `json:"file_url"`
	LicenseCode string `json:"license_code"`
}
