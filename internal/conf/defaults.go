package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for all configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main settings
	viper.SetDefault("main.name", "NatureTrace")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/naturetrace.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)

	// Database settings
	viper.SetDefault("database.sqlite.enabled", true)
	viper.SetDefault("database.sqlite.path", "naturetrace.db")
	viper.SetDefault("database.mysql.enabled", false)
	viper.SetDefault("database.mysql.username", "naturetrace")
	viper.SetDefault("database.mysql.password", "secret")
	viper.SetDefault("database.mysql.database", "naturetrace")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")

	// Provider settings
	viper.SetDefault("providers.inaturalist.endpoint", "https://api.inaturalist.org/v1")
	viper.SetDefault("providers.inaturalist.perpage", 5)
	viper.SetDefault("providers.xenocanto.endpoint", "https://xeno-canto.org/api/2")
	viper.SetDefault("providers.freesound.endpoint", "https://freesound.org/apiv2")
	viper.SetDefault("providers.freesound.apikey", "")
	viper.SetDefault("providers.freesound.pagesize", 20)
	viper.SetDefault("providers.freesound.maxduration", 30)
	viper.SetDefault("providers.wikipedia.endpoint", "https://en.wikipedia.org/api/rest_v1")
	viper.SetDefault("providers.wikipedia.ratelimit", 2.0)
	viper.SetDefault("providers.geocode.endpoint", "https://nominatim.openstreetmap.org")
	viper.SetDefault("providers.groq.endpoint", "https://api.groq.com/openai/v1")
	viper.SetDefault("providers.groq.apikey", "")
	viper.SetDefault("providers.groq.model", "llama3-8b-8192")

	// Speech filter settings
	viper.SetDefault("speechfilter.enabled", false)
	viper.SetDefault("speechfilter.serverurl", "http://localhost:8080")
	viper.SetDefault("speechfilter.language", "en")
	viper.SetDefault("speechfilter.minsilencems", 500)
	viper.SetDefault("speechfilter.keepsilencems", 200)
	viper.SetDefault("speechfilter.gapms", 100)
	viper.SetDefault("speechfilter.minresultms", 1000)
	viper.SetDefault("speechfilter.scratchdir", "")

	// Batch settings
	viper.SetDefault("batch.delayms", 1500)
	viper.SetDefault("batch.limit", 10)
}
