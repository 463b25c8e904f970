package conf

import (
	"fmt"
	"strconv"

	"github.com/naturetrace/naturetrace-go/internal/errors"
)

// ValidateSettings checks the loaded settings for inconsistencies that would
// make the service misbehave at runtime.
func ValidateSettings(settings *Settings) error {
	var errs []string

	if !settings.Database.SQLite.Enabled && !settings.Database.MySQL.Enabled {
		errs = append(errs, "no database backend enabled")
	}
	if settings.Database.SQLite.Enabled && settings.Database.MySQL.Enabled {
		errs = append(errs, "only one database backend may be enabled")
	}
	if settings.Database.SQLite.Enabled && settings.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required")
	}
	if settings.Database.MySQL.Enabled {
		if settings.Database.MySQL.Host == "" || settings.Database.MySQL.Database == "" {
			errs = append(errs, "database.mysql.host and database.mysql.database are required")
		}
		if _, err := strconv.Atoi(settings.Database.MySQL.Port); err != nil {
			errs = append(errs, fmt.Sprintf("database.mysql.port %q is not numeric", settings.Database.MySQL.Port))
		}
	}

	if settings.Providers.INaturalist.PerPage <= 0 {
		errs = append(errs, "providers.inaturalist.perpage must be positive")
	}
	if settings.Providers.FreeSound.PageSize <= 0 {
		errs = append(errs, "providers.freesound.pagesize must be positive")
	}
	if settings.Providers.FreeSound.MaxDuration <= 0 {
		errs = append(errs, "providers.freesound.maxduration must be positive")
	}
	if settings.Providers.Wikipedia.RateLimit <= 0 {
		errs = append(errs, "providers.wikipedia.ratelimit must be positive")
	}

	if settings.SpeechFilter.Enabled && settings.SpeechFilter.ServerURL == "" {
		errs = append(errs, "speechfilter.serverurl is required when the speech filter is enabled")
	}
	if settings.SpeechFilter.MinSilenceMs <= 0 {
		errs = append(errs, "speechfilter.minsilencems must be positive")
	}

	if settings.Batch.DelayMs < 0 {
		errs = append(errs, "batch.delayms must not be negative")
	}

	if len(errs) > 0 {
		return errors.Newf("invalid configuration: %v", errs).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("error_count", len(errs)).
			Build()
	}
	return nil
}
