package cmd

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/BotBlake/jellybench/internal/config"
	"github.com/BotBlake/jellybench/internal/hubclient"
)

var (
	cfgFile   string
	serverURL string
	debugMode bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jellybench",
	Short: "Transcode capacity benchmark for the Jellyfin hardware survey",
	Long: `jellybench measures how many media streams this machine can transcode
in real time.

It fetches the survey's ffmpeg build and reference videos, then ramps up
concurrent transcodes per hardware path (CPU, GPU) until real-time speed
is lost. The last sustainable stream count per path goes into a report
you can review and upload to the hardware survey.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (optional)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Survey server URL (default "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output")
}

// loadConfig resolves file, environment, and persistent-flag configuration.
// Flags win over everything else.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Hub.ServerURL = serverURL
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newHubClient builds the survey API client used by the subcommands.
func newHubClient(cfg *config.Config) *hubclient.Client {
	return hubclient.NewClient(cfg.Hub.ServerURL,
		hubclient.WithHTTPClient(&http.Client{Timeout: cfg.Hub.Timeout}),
		hubclient.WithMinInterval(cfg.Hub.MinInterval),
		hubclient.WithUserAgent("jellybench/"+Version),
	)
}
