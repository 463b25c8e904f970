package datastore

import (
	"time"
)

// Animal represents one catalogued animal record. Sound and location fields
// are filled in by the enrichment pipeline; the rest comes from the intake
// flow that created the record.
type Animal struct {
	ID           uint   `gorm:"primaryKey"`
	Filename     string `gorm:"index:idx_animals_filename"`
	Name         string `gorm:"index:idx_animals_name"`
	Description  string
	Facts        string
	Category     string `gorm:"index:idx_animals_category"`
	Species      string
	Summary      string
	InaturalPic  string
	WikipediaURL string

	// Sound enrichment
	SoundURL     string
	SoundSource  string
	SoundUpdated *time.Time

	// Location enrichment. Latitude and Longitude are pointers so a record
	// either has both coordinates or neither.
	Latitude       *float64
	Longitude      *float64
	LocationString string
	PlaceGuess     string

	Timestamp time.Time `gorm:"autoCreateTime"`
}

// HasSound reports whether the record already carries a playable sound URL.
func (a *Animal) HasSound() bool {
	return a.SoundURL != ""
}

// HasLocation reports whether the record carries a complete coordinate pair.
func (a *Animal) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Coverage summarizes enrichment progress for the status command.
type Coverage struct {
	Total        int64
	WithSound    int64
	WithLocation int64
	BySource     map[string]int64
	RecentSounds []Animal
}

// SoundPercent returns the share of records with a sound URL, 0-100.
func (c *Coverage) SoundPercent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.WithSound) / float64(c.Total) * 100
}

// LocationPercent returns the share of records with coordinates, 0-100.
func (c *Coverage) LocationPercent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.WithLocation) / float64(c.Total) * 100
}
