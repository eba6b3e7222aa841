package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultServerURL is the public survey service the client talks to unless
// told otherwise.
const DefaultServerURL = "https://hwa.jellyfin.org"

// Config holds all client configuration
type Config struct {
	Hub     HubClientConfig `mapstructure:"hub"`
	Assets  AssetsConfig    `mapstructure:"assets"`
	Bench   BenchConfig     `mapstructure:"bench"`
	Logging LoggingConfig   `mapstructure:"logging"`
}

// HubClientConfig holds survey service connection configuration
type HubClientConfig struct {
	ServerURL   string        `mapstructure:"server_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"` // minimum spacing between API calls
}

// AssetsConfig holds download locations for the transcoder and test media
type AssetsConfig struct {
	FFmpegDir   string `mapstructure:"ffmpeg_dir"`
	VideoDir    string `mapstructure:"video_dir"`
	Concurrency int    `mapstructure:"concurrency"` // parallel asset downloads
	SFTPUser    string `mapstructure:"sftp_user"`
	SFTPKeyPath string `mapstructure:"sftp_key_path"` // private key for sftp:// asset sources
}

// BenchConfig holds the resolved capacity ramp parameters
type BenchConfig struct {
	EnableCPU     bool          `mapstructure:"enable_cpu"`
	EnableGPU     bool          `mapstructure:"enable_gpu"`
	GPUIndex      int           `mapstructure:"gpu_index"`
	RampStep      int           `mapstructure:"ramp_step"`
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
	MaxWorkers    int           `mapstructure:"max_workers"` // 0 = no ceiling
	PassThreshold float64       `mapstructure:"pass_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Read from environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration primarily from environment variables
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from .env file if it exists
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	// Read from environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Hub defaults
	v.SetDefault("hub.server_url", DefaultServerURL)
	v.SetDefault("hub.timeout", 30*time.Second)
	v.SetDefault("hub.min_interval", time.Second)

	// Asset defaults
	v.SetDefault("assets.ffmpeg_dir", "./ffmpeg")
	v.SetDefault("assets.video_dir", "./videos")
	v.SetDefault("assets.concurrency", 3)

	// Bench defaults
	v.SetDefault("bench.enable_cpu", true)
	v.SetDefault("bench.enable_gpu", true)
	v.SetDefault("bench.gpu_index", 0)
	v.SetDefault("bench.ramp_step", 1)
	v.SetDefault("bench.worker_timeout", 120*time.Second)
	v.SetDefault("bench.max_workers", 0)
	v.SetDefault("bench.pass_threshold", 1.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// bindEnv binds a config key to an environment variable and logs failures
// (BindEnv errors are non-fatal but should be visible)
func bindEnv(v *viper.Viper, key string, envVar string) {
	if err := v.BindEnv(key, envVar); err != nil {
		slog.Warn("failed to bind environment variable",
			slog.String("key", key),
			slog.String("env_var", envVar),
			slog.String("error", err.Error()))
	}
}

func bindEnvVars(v *viper.Viper) {
	// Hub connection
	bindEnv(v, "hub.server_url", "JELLYBENCH_SERVER")

	// Asset locations
	bindEnv(v, "assets.ffmpeg_dir", "JELLYBENCH_FFMPEG_DIR")
	bindEnv(v, "assets.video_dir", "JELLYBENCH_VIDEO_DIR")
	bindEnv(v, "assets.sftp_user", "JELLYBENCH_SFTP_USER")
	bindEnv(v, "assets.sftp_key_path", "JELLYBENCH_SFTP_KEY")

	// Bench tuning
	bindEnv(v, "bench.worker_timeout", "JELLYBENCH_WORKER_TIMEOUT")
	bindEnv(v, "bench.max_workers", "JELLYBENCH_MAX_WORKERS")

	// Logging
	bindEnv(v, "logging.level", "LOG_LEVEL")
	bindEnv(v, "logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Hub.ServerURL == "" {
		return fmt.Errorf("hub server URL must not be empty")
	}

	if !c.Bench.EnableCPU && !c.Bench.EnableGPU {
		return fmt.Errorf("at least one hardware path must be enabled")
	}

	if c.Bench.GPUIndex < 0 {
		return fmt.Errorf("gpu_index must not be negative")
	}

	if c.Bench.RampStep < 1 {
		return fmt.Errorf("ramp_step must be at least 1")
	}

	if c.Bench.WorkerTimeout <= 0 {
		return fmt.Errorf("worker_timeout must be positive")
	}

	if c.Bench.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must not be negative")
	}

	if c.Bench.PassThreshold <= 0 {
		return fmt.Errorf("pass_threshold must be positive")
	}

	if c.Assets.Concurrency < 1 {
		return fmt.Errorf("assets concurrency must be at least 1")
	}

	return nil
}
