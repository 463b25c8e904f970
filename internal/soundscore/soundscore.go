// Package soundscore ranks candidate sound clips for a subject. The scoring
// is deterministic: title match, description keywords, duration bonus and a
// capped rating bonus, with ties broken by candidate order.
package soundscore

import (
	"strings"

	"github.com/naturetrace/naturetrace-go/internal/errors"
)

// Candidate is one scoreable clip from a sound provider.
type Candidate struct {
	// Ref is the provider's identifier for the clip.
	Ref string
	// Title and Description come verbatim from the provider.
	Title       string
	Description string
	// Duration in seconds.
	Duration float64
	// Rating is the provider's average user rating (0-5).
	Rating float64
	// PreviewURL is a fallback playable URL when no download is available.
	PreviewURL string
}

// Scoring weights.
const (
	titleMatchBonus    = 100
	keywordBonus       = 10
	shortClipBonus     = 50 // at most 1s, single clean call
	mediumClipBonus    = 30 // at most 5s
	longClipBonus      = 10 // at most 15s
	ratingMultiplier   = 5
	ratingBonusCeiling = 25
)

// descriptionKeywords indicate the clip is an actual animal recording rather
// than a sound effect or music.
var descriptionKeywords = []string{
	"animal", "wildlife", "nature", "bird", "mammal",
	"call", "sound", "vocalization",
}

// Score computes the quality score of one candidate for the subject.
func Score(subject string, c *Candidate) int {
	score := 0

	subjectLower := strings.ToLower(strings.TrimSpace(subject))
	if subjectLower != "" && strings.Contains(strings.ToLower(c.Title), subjectLower) {
		score += titleMatchBonus
	}

	descLower := strings.ToLower(c.Description)
	for _, kw := range descriptionKeywords {
		if strings.Contains(descLower, kw) {
			score += keywordBonus
		}
	}

	switch {
	case c.Duration <= 0:
		// Unknown duration earns no bonus
	case c.Duration <= 1:
		score += shortClipBonus
	case c.Duration <= 5:
		score += mediumClipBonus
	case c.Duration <= 15:
		score += longClipBonus
	}

	ratingBonus := int(c.Rating * ratingMultiplier)
	if ratingBonus > ratingBonusCeiling {
		ratingBonus = ratingBonusCeiling
	}
	if ratingBonus > 0 {
		score += ratingBonus
	}

	return score
}

// Best returns the highest scoring candidate and its score. The first
// candidate wins ties, keeping selection stable for identical inputs.
// A best score of zero means nothing plausibly matched.
func Best(subject string, candidates []Candidate) (*Candidate, int, error) {
	if len(candidates) == 0 {
		return nil, 0, errors.Newf("no candidates for %q", subject).
			Component("soundscore").
			Category(errors.CategoryNotFound).
			Build()
	}

	bestIdx := -1
	bestScore := 0
	for i := range candidates {
		s := Score(subject, &candidates[i])
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, 0, errors.Newf("no candidate scored above zero for %q", subject).
			Component("soundscore").
			Category(errors.CategoryNotFound).
			Context("candidates", len(candidates)).
			Build()
	}

	return &candidates[bestIdx], bestScore, nil
}
