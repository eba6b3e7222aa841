package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// HubConfig holds all survey hub server configuration
type HubConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SeedConfig points at the test-data manifest loaded on startup
type SeedConfig struct {
	TestDataPath string `mapstructure:"test_data_path"`
}

// LoadHub loads hub configuration from file and environment
func LoadHub(configPath string) (*HubConfig, error) {
	v := viper.New()

	setHubDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindHubEnvVars(v)

	var cfg HubConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setHubDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.path", "./data/jellybench-hub.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindHubEnvVars(v *viper.Viper) {
	bindEnv(v, "server.host", "HUB_HOST")
	bindEnv(v, "server.port", "HUB_PORT")
	bindEnv(v, "database.path", "HUB_DATABASE_PATH")
	bindEnv(v, "seed.test_data_path", "HUB_TEST_DATA")
	bindEnv(v, "logging.level", "LOG_LEVEL")
	bindEnv(v, "logging.format", "LOG_FORMAT")
}

// Validate checks if the hub configuration is valid
func (c *HubConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}

	return nil
}
