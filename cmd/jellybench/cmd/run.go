package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/BotBlake/jellybench/internal/assets"
	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
	"github.com/BotBlake/jellybench/internal/config"
	"github.com/BotBlake/jellybench/internal/hubclient"
	"github.com/BotBlake/jellybench/internal/inventory"
	"github.com/BotBlake/jellybench/internal/logging"
	"github.com/BotBlake/jellybench/internal/progress"
	"github.com/BotBlake/jellybench/internal/service/ramp"
	"github.com/BotBlake/jellybench/pkg/models"
)

var (
	runFFmpegDir string
	runVideoDir  string
	runOutput    string
	runTestsFile string
	runGPUIndex  int
	runNoCPU     bool
	runNoGPU     bool
	runYes       bool
	runNoUpload  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transcode capacity benchmark",
	Long: `Run the full benchmark: fetch the survey's ffmpeg build and test videos,
ramp up concurrent transcodes per hardware path until real-time speed is
lost, write the report, and optionally upload it.`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFFmpegDir, "ffmpeg", "", "Directory for the survey ffmpeg build (default ./ffmpeg)")
	runCmd.Flags().StringVar(&runVideoDir, "videos", "", "Directory for test videos, SSD recommended (default ./videos)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "./output.json", "Path for the report JSON")
	runCmd.Flags().StringVar(&runTestsFile, "tests", "", "Load test data from a local JSON file instead of the server")
	runCmd.Flags().IntVar(&runGPUIndex, "gpu", 0, "Index of the GPU to benchmark")
	runCmd.Flags().BoolVar(&runNoCPU, "nocpu", false, "Skip the CPU hardware path")
	runCmd.Flags().BoolVar(&runNoGPU, "nogpu", false, "Skip the GPU hardware path")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Answer yes to all prompts")
	runCmd.Flags().BoolVar(&runNoUpload, "no-upload", false, "Never upload the report")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, uuid.New().String())

	fmt.Println("jellybench, the Jellyfin transcode capacity benchmark")
	fmt.Println()
	fmt.Println("Close background programs before starting. On battery power,")
	fmt.Println("plug the device in first; throttling skews results.")
	if !confirm("Continue?") {
		return nil
	}
	fmt.Println()

	// Test data: survey service, or a local manifest for development.
	client := newHubClient(cfg)
	var data *models.TestData
	if runTestsFile != "" {
		fmt.Printf("Using local test data from %s. The report will not be uploaded.\n", runTestsFile)
		runNoUpload = true
		data, err = loadLocalTestData(runTestsFile)
		if err != nil {
			return err
		}
	} else {
		if cfg.Hub.ServerURL != config.DefaultServerURL {
			fmt.Printf("Not using the official server (%s). Do not upload results.\n", cfg.Hub.ServerURL)
		}
		platforms, err := client.GetPlatforms(ctx)
		if err != nil {
			return fmt.Errorf("survey service unreachable: %w", err)
		}
		platform, ok := hubclient.ResolvePlatform(platforms, runtime.GOOS, runtime.GOARCH)
		if !ok {
			return fmt.Errorf("no supported platform for %s/%s, see 'jellybench platforms'", runtime.GOOS, runtime.GOARCH)
		}
		data, err = client.GetTestData(ctx, platform.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch test data: %w", err)
		}
	}

	// Hardware identity and path selection.
	collector := inventory.NewCollector(logger)
	hardware := collector.CollectHost(ctx)
	gpus := collector.DetectGPUs(ctx)

	fmt.Println("Detected hardware:")
	fmt.Printf("  CPU:    %s\n", hardware.CPUModel)
	system := hardware.OS + "/" + hardware.Arch
	if hardware.OSVersion != "" {
		system += " (" + hardware.OSVersion + ")"
	}
	fmt.Printf("  System: %s\n", system)
	for _, g := range gpus {
		fmt.Printf("  GPU %d:  %s\n", g.Index, g.Model)
	}
	fmt.Println()

	sel := catalog.Selection{
		EnableCPU:     cfg.Bench.EnableCPU,
		PassThreshold: cfg.Bench.PassThreshold,
	}
	if cfg.Bench.EnableGPU {
		switch {
		case len(gpus) == 0:
			fmt.Println("No GPU detected, skipping the GPU path.")
		case cfg.Bench.GPUIndex >= len(gpus):
			return fmt.Errorf("gpu index %d out of range, %d device(s) detected", cfg.Bench.GPUIndex, len(gpus))
		default:
			gpu := gpus[cfg.Bench.GPUIndex]
			sel.EnableGPU = true
			sel.GPUVendor = gpu.Vendor
			sel.GPUDevice = gpu.DeviceArg()
			hardware.GPUModel = gpu.Model
			hardware.GPUVendor = gpu.Vendor
			fmt.Printf("Using GPU %d (%s) for the GPU path.\n", gpu.Index, gpu.Model)
		}
	}
	if !sel.EnableCPU && !sel.EnableGPU {
		return errors.New("all hardware paths are disabled on this machine")
	}

	// Transcoder and media acquisition.
	manager, err := newAssetManager(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Println("\nFetching transcoder build...")
	binary, err := manager.FetchTool(ctx, cfg.Assets.FFmpegDir, data.FFmpeg)
	if err != nil {
		return fmt.Errorf("transcoder setup failed: %w", err)
	}
	logger.Info("transcoder ready", slog.String("binary", binary))

	fmt.Println("Fetching test videos...")
	videos, err := manager.FetchVideos(ctx, cfg.Assets.VideoDir, data.Assets)
	if err != nil {
		return fmt.Errorf("video download failed: %w", err)
	}

	cases, err := catalog.Build(data, videos, sel)
	if err != nil {
		return err
	}

	paths := enabledPaths(sel)
	fmt.Printf("\n%d test case(s) across %d hardware path(s). A full ramp can take a while.\n", len(cases), len(paths))
	if !confirm("Start the benchmark?") {
		return nil
	}
	fmt.Println()

	// The ramp itself.
	runner := ramp.NewProcessRunner(binary, cfg.Bench.WorkerTimeout, "", logger)
	executor := ramp.NewExecutor(runner, logger)

	var observer ramp.Observer = progress.NewConsole(os.Stdout)
	if debugMode {
		observer = progress.NewLog(logger)
	}

	controller := ramp.New(executor,
		ramp.WithLogger(logger),
		ramp.WithObserver(observer),
		ramp.WithStep(cfg.Bench.RampStep),
		ramp.WithMaxWorkers(cfg.Bench.MaxWorkers))

	var records []benchmark.CapacityRecord
	for _, path := range paths {
		pathCtx := logging.WithPath(ctx, string(path))
		record, err := controller.RunPath(pathCtx, path, catalog.ForPath(cases, path))
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			if errors.Is(err, benchmark.ErrEnvironment) {
				logger.Warn("hardware path skipped",
					slog.String("path", string(path)),
					slog.String("error", err.Error()))
				records = append(records, record)
				continue
			}
			return err
		}
		records = append(records, record)
	}

	// Report, file output, upload.
	report := benchmark.Compile(hardware, records)
	fmt.Print(benchmark.FormatReportSummary(report))

	encoded, err := benchmark.EncodeReport(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(runOutput, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report written to %s\n", runOutput)

	logPath := filepath.Join(filepath.Dir(runOutput), "ffmpeg_errors.log")
	if written, err := writeTranscoderLog(logPath, records); err != nil {
		logger.Warn("failed to write transcoder error log", slog.String("error", err.Error()))
	} else if written {
		fmt.Printf("Transcoder error excerpts written to %s\n", logPath)
	}

	if runNoUpload {
		return nil
	}
	if data.Token == "" {
		fmt.Println("The test data carries no upload token; skipping upload.")
		return nil
	}
	if !confirm(fmt.Sprintf("Upload the report to %s?", cfg.Hub.ServerURL)) {
		return nil
	}
	resp, err := client.SubmitReport(ctx, data.Token, report)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Printf("Upload accepted, submission id %s.\n", resp.ID)
	return nil
}

// applyRunFlags overlays run-command flags onto the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if runFFmpegDir != "" {
		cfg.Assets.FFmpegDir = runFFmpegDir
	}
	if runVideoDir != "" {
		cfg.Assets.VideoDir = runVideoDir
	}
	if cmd.Flags().Changed("gpu") {
		cfg.Bench.GPUIndex = runGPUIndex
	}
	if runNoCPU {
		cfg.Bench.EnableCPU = false
	}
	if runNoGPU {
		cfg.Bench.EnableGPU = false
	}
}

// newAssetManager wires download options, including sftp credentials when a
// key is configured.
func newAssetManager(cfg *config.Config, logger *slog.Logger) (*assets.Manager, error) {
	opts := []assets.Option{
		assets.WithLogger(logger),
		assets.WithConcurrency(cfg.Assets.Concurrency),
		assets.WithProgress(!debugMode),
	}
	if cfg.Assets.SFTPUser != "" && cfg.Assets.SFTPKeyPath != "" {
		key, err := os.ReadFile(cfg.Assets.SFTPKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read sftp key %s: %w", cfg.Assets.SFTPKeyPath, err)
		}
		opts = append(opts, assets.WithSFTP(assets.SFTPCredentials{
			User:       cfg.Assets.SFTPUser,
			PrivateKey: key,
		}))
	}
	return assets.New(opts...), nil
}

// loadLocalTestData reads a manifest from disk, the same JSON the server
// returns from its tests endpoint.
func loadLocalTestData(path string) (*models.TestData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test data file: %w", err)
	}
	var data models.TestData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse test data file %s: %w", path, err)
	}
	return &data, nil
}

// enabledPaths lists the hardware paths to ramp, CPU first.
func enabledPaths(sel catalog.Selection) []models.HardwarePath {
	var paths []models.HardwarePath
	if sel.EnableCPU {
		paths = append(paths, models.PathCPU)
	}
	if sel.EnableGPU {
		paths = append(paths, models.PathGPU)
	}
	return paths
}

// confirm asks a yes/no question on stdin. --yes answers everything.
func confirm(prompt string) bool {
	if runYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// writeTranscoderLog saves the stderr excerpts of failed workers so crash
// output survives for bug reports. Reports whether anything was written; a
// clean run produces no file.
func writeTranscoderLog(path string, records []benchmark.CapacityRecord) (bool, error) {
	var sb strings.Builder
	for _, rec := range records {
		for _, batch := range rec.Batches {
			if batch.Passed {
				continue
			}
			for i, o := range batch.Outcomes {
				if o.Succeeded() || o.Stderr == "" {
					continue
				}
				fmt.Fprintf(&sb, "==== %s path, test %s, %d workers, worker %d: %s (exit %d)\n%s\n",
					rec.Path, batch.TestID, batch.Workers, i, o.Status, o.ExitCode, o.Stderr)
			}
		}
	}
	if sb.Len() == 0 {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return false, err
	}
	return true, nil
}
