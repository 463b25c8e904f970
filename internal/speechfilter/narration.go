package speechfilter

import (
	"strings"
)

// indicatorPhrases mark a transcript as human narration: field recording
// announcements, species descriptions and archive attributions.
var indicatorPhrases = []string{
	"this is", "here we have", "you can hear", "listen to",
	"recorded", "sound of", "call of", "song of",
	"male", "female", "adult", "juvenile",
	"morning", "evening", "dawn", "dusk",
	"location", "recorded at", "captured",
	"macaulay library", "cornell", "ornithology",
	"bird", "animal", "species", "identification",
}

// IsNarration reports whether a transcript is human speech. Any indicator
// phrase marks it, and so do two or more recognized words: animal sounds
// that whisper mis-hears rarely come out as multi-word text. An empty
// transcript is never narration.
func IsNarration(transcript string) bool {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if text == "" {
		return false
	}

	for _, phrase := range indicatorPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}

	return len(strings.Fields(text)) >= 2
}
