package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Conversion
	FFmpegLocation      string
	JobDirectory        string
	StagingDirectory    string
	FinalDirectory      string
	StringSubstitutions map[string]string

	// Download daemon
	DelugeURL      string
	DelugePassword string

	// Metadata
	TVDBAPIKey    string
	TVDBPin       string
	DatabaseFile  string
	TrackedSeries []TrackedSeries

	// Search
	SearchRetryCount int

	// Notification
	TwilioSID       string
	TwilioAuthToken string
	SendingNumber   string
	ReceivingNumber string

	// Server
	ServerPort string

	// Logging
	LogLevel string
	LogFile  string
}

// TrackedSeries describes one series the pipeline watches for new episodes
type TrackedSeries struct {
	MainKeyword    string         `mapstructure:"keyword"`
	SeriesID       int            `mapstructure:"id"`
	Keywords       []string       `mapstructure:"keywords"`
	StoredSearches []SearchConfig `mapstructure:"searches"`
}

// SearchConfig describes one stored search configuration for a tracked series
type SearchConfig struct {
	SearchTerms    []string `mapstructure:"search_terms"`
	IsDownloadOnly bool     `mapstructure:"download_only"`
}

// MatchesKeyword reports whether the series is tracked under the given keyword
func (t TrackedSeries) MatchesKeyword(keyword string) bool {
	if t.MainKeyword == keyword {
		return true
	}
	for _, k := range t.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// Load loads configuration from the settings file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("settings")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("infieldfly")
	viper.AutomaticEnv()

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "infieldfly")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}
	viper.AddConfigPath(configDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.SetDefault("conversion.staging_directory", filepath.Join(configDir, "staging"))
	viper.SetDefault("conversion.final_directory", filepath.Join(configDir, "completed"))
	viper.SetDefault("conversion.job_directory", filepath.Join(configDir, ".jobs"))
	viper.SetDefault("conversion.deluge_url", "http://localhost:8112")
	viper.SetDefault("metadata.database_file", filepath.Join(configDir, ".dbcache"))
	viper.SetDefault("search.retry_count", 4)
	viper.SetDefault("server_port", "8080")
	viper.SetDefault("log_level", "info")

	// The settings file is optional; environment variables and defaults can
	// carry a minimal setup.
	_ = viper.ReadInConfig()

	config := &Config{
		FFmpegLocation:      viper.GetString("conversion.ffmpeg_location"),
		JobDirectory:        viper.GetString("conversion.job_directory"),
		StagingDirectory:    viper.GetString("conversion.staging_directory"),
		FinalDirectory:      viper.GetString("conversion.final_directory"),
		StringSubstitutions: viper.GetStringMapString("conversion.substitutions"),

		DelugeURL:      viper.GetString("conversion.deluge_url"),
		DelugePassword: viper.GetString("conversion.deluge_password"),

		TVDBAPIKey:   viper.GetString("metadata.api_key"),
		TVDBPin:      viper.GetString("metadata.pin"),
		DatabaseFile: viper.GetString("metadata.database_file"),

		SearchRetryCount: viper.GetInt("search.retry_count"),

		TwilioSID:       viper.GetString("notification.sid"),
		TwilioAuthToken: viper.GetString("notification.auth_token"),
		SendingNumber:   viper.GetString("notification.sending_number"),
		ReceivingNumber: viper.GetString("notification.receiving_number"),

		ServerPort: viper.GetString("server_port"),
		LogLevel:   viper.GetString("log_level"),
		LogFile:    viper.GetString("log_file"),
	}

	var tracked []TrackedSeries
	if err := viper.UnmarshalKey("metadata.tracked_series", &tracked); err != nil {
		return nil, fmt.Errorf("failed to parse tracked series settings: %w", err)
	}
	config.TrackedSeries = validTrackedSeries(tracked)

	if config.TVDBAPIKey == "" {
		return nil, fmt.Errorf("metadata.api_key is required")
	}

	return config, nil
}

// validTrackedSeries drops entries without a usable series ID and fills in a
// default search configuration for series that track episodes but declare no
// explicit searches.
func validTrackedSeries(tracked []TrackedSeries) []TrackedSeries {
	var valid []TrackedSeries
	for _, series := range tracked {
		if series.SeriesID <= 0 || series.MainKeyword == "" {
			continue
		}
		if len(series.StoredSearches) == 0 {
			series.StoredSearches = []SearchConfig{{SearchTerms: []string{series.MainKeyword}}}
		}
		valid = append(valid, series)
	}
	return valid
}
