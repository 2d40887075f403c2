// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port         int `mapstructure:"port"`
	SyncInterval int `mapstructure:"sync_interval"` // minutes, 0 disables the scheduled sync
	FetchTimeout int `mapstructure:"fetch_timeout"` // seconds, applied to every network fetch
	Database     struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Storage struct {
		ShowsDir      string `mapstructure:"shows_dir"`      // cached feed XML, one file per feed
		EpisodesDir   string `mapstructure:"episodes_dir"`   // downloaded audio enclosures
		ThumbnailsDir string `mapstructure:"thumbnails_dir"` // feed artwork
	} `mapstructure:"storage"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")
	viper.AddConfigPath(".") // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "PODBAY_" prefix.
	// e.g., PODBAY_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("PODBAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("sync_interval", 60)
	viper.SetDefault("fetch_timeout", 30)
	viper.SetDefault("database.path", "./podbay.db")
	viper.SetDefault("storage.shows_dir", "./shows")
	viper.SetDefault("storage.episodes_dir", "./episodes")
	viper.SetDefault("storage.thumbnails_dir", "./thumbnails")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
