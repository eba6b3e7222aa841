package cmd

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BotBlake/jellybench/internal/hubclient"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List platforms known to the survey service",
	Long:  `Display the platforms the survey service has test data for, and which one this machine resolves to.`,
	RunE:  runPlatforms,
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newHubClient(cfg)
	platforms, err := client.GetPlatforms(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list platforms: %w", err)
	}

	if len(platforms) == 0 {
		fmt.Println("The survey service reports no platforms.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOS\tARCH\tSUPPORTED")
	fmt.Fprintln(w, "--\t----\t--\t----\t---------")
	for _, p := range platforms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.OS, p.Arch, p.Supported)
	}
	w.Flush()

	fmt.Println()
	if platform, ok := hubclient.ResolvePlatform(platforms, runtime.GOOS, runtime.GOARCH); ok {
		fmt.Printf("This machine (%s/%s) resolves to %s.\n", runtime.GOOS, runtime.GOARCH, platform.ID)
	} else {
		fmt.Printf("No supported platform matches this machine (%s/%s).\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
