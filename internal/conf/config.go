// Package conf loads and validates the application configuration through
// viper, with an embedded default config file as fallback.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// RotationType defines the log rotation strategy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // Path to the log file
	Rotation RotationType // Log rotation type
	MaxSize  int64        // Max log size in bytes for size rotation
}

// MainSettings holds application wide settings
type MainSettings struct {
	Name string    // Name of the node
	Log  LogConfig // Main log configuration
}

// SQLiteSettings holds SQLite database settings
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings holds MySQL database settings
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// DatabaseSettings groups the supported database backends
type DatabaseSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// INaturalistSettings configures the iNaturalist observations client
type INaturalistSettings struct {
	Endpoint string // API base URL
	PerPage  int    // Observations fetched per query variant
}

// XenoCantoSettings configures the xeno-canto recordings client
type XenoCantoSettings struct {
	Endpoint string
}

// FreeSoundSettings configures the FreeSound search client
type FreeSoundSettings struct {
	Endpoint    string
	APIKey      string
	PageSize    int
	MaxDuration int // Longest acceptable clip in seconds
}

// WikipediaSettings configures the Wikipedia REST summary client
type WikipediaSettings struct {
	Endpoint  string
	RateLimit float64 // Requests per second for background lookups
}

// GeocodeSettings configures the Nominatim geocoding client
type GeocodeSettings struct {
	Endpoint string
}

// GroqSettings configures the Groq chat-completion fallback
type GroqSettings struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ProviderSettings groups all external provider clients
type ProviderSettings struct {
	INaturalist INaturalistSettings
	XenoCanto   XenoCantoSettings
	FreeSound   FreeSoundSettings
	Wikipedia   WikipediaSettings
	Geocode     GeocodeSettings
	Groq        GroqSettings
}

// SpeechFilterSettings configures narration removal from downloaded audio
type SpeechFilterSettings struct {
	Enabled       bool
	ServerURL     string // whisper-server base URL
	Language      string
	MinSilenceMs  int    // Minimum silence length splitting segments
	KeepSilenceMs int    // Silence padding retained around segments
	GapMs         int    // Silence inserted between rejoined segments
	MinResultMs   int    // Shorter processed results are rejected
	ScratchDir    string // Working directory for downloaded/processed audio
}

// BatchSettings configures batch enrichment runs
type BatchSettings struct {
	DelayMs int // Politeness delay between subjects
	Limit   int // Default batch size
}

// Settings is the root configuration structure
type Settings struct {
	Debug bool // true to enable debug logs

	Main         MainSettings
	Database     DatabaseSettings
	Providers    ProviderSettings
	SpeechFilter SpeechFilterSettings
	Batch        BatchSettings

	Version string // Version from build info
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("NATURETRACE")
	viper.AutomaticEnv()

	// Defaults defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the ordered list of directories searched for
// the config file: working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "naturetrace"))
	}
	return paths, nil
}

// createDefaultConfig writes the embedded default config to the user config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[len(configPaths)-1], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// BatchDelay returns the politeness delay between batch subjects.
func (s *Settings) BatchDelay() time.Duration {
	if s.Batch.DelayMs <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(s.Batch.DelayMs) * time.Millisecond
}
