package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Database.SQLite.Enabled = true
	s.Database.SQLite.Path = "test.db"
	s.Providers.INaturalist.PerPage = 5
	s.Providers.FreeSound.PageSize = 20
	s.Providers.FreeSound.MaxDuration = 30
	s.Providers.Wikipedia.RateLimit = 2.0
	s.SpeechFilter.MinSilenceMs = 500
	s.Batch.DelayMs = 1500
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"valid", func(s *Settings) {}, false},
		{"no backend", func(s *Settings) { s.Database.SQLite.Enabled = false }, true},
		{"both backends", func(s *Settings) { s.Database.MySQL.Enabled = true; s.Database.MySQL.Host = "h"; s.Database.MySQL.Database = "d"; s.Database.MySQL.Port = "3306" }, true},
		{"missing sqlite path", func(s *Settings) { s.Database.SQLite.Path = "" }, true},
		{"bad mysql port", func(s *Settings) {
			s.Database.SQLite.Enabled = false
			s.Database.MySQL.Enabled = true
			s.Database.MySQL.Host = "h"
			s.Database.MySQL.Database = "d"
			s.Database.MySQL.Port = "not-a-port"
		}, true},
		{"zero per page", func(s *Settings) { s.Providers.INaturalist.PerPage = 0 }, true},
		{"speech filter without server", func(s *Settings) { s.SpeechFilter.Enabled = true; s.SpeechFilter.ServerURL = "" }, true},
		{"negative batch delay", func(s *Settings) { s.Batch.DelayMs = -1 }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBatchDelay(t *testing.T) {
	t.Parallel()

	s := validSettings()
	assert.Equal(t, 1500*time.Millisecond, s.BatchDelay())

	s.Batch.DelayMs = 250
	assert.Equal(t, 250*time.Millisecond, s.BatchDelay())

	s.Batch.DelayMs = 0
	assert.Equal(t, 1500*time.Millisecond, s.BatchDelay())
}
