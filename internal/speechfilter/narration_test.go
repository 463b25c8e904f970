package speechfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNarration(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"indicator phrase", "This is a bobcat", true},
		{"archive attribution", "Macaulay Library", true},
		{"single indicator word", "recorded", true},
		{"case insensitive", "LISTEN TO the call", true},
		{"two plain words", "something unintelligible", true},
		{"single non-indicator word", "screech", false},
		{"mis-heard noise", "grr", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNarration(tt.transcript))
		})
	}
}
