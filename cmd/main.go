package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minaret/internal/api"
	"minaret/internal/audio"
	"minaret/internal/clock"
	"minaret/internal/config"
	"minaret/internal/ha"
	"minaret/internal/player"
	"minaret/internal/provider"
	"minaret/internal/scheduler"
	"minaret/internal/state"
	"minaret/internal/suncalc"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "minaret",
		Short:   "Prayer times and azan playback for Home Assistant",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the minaret daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	haURL := os.Getenv("HA_URL")
	haToken := os.Getenv("HA_TOKEN")
	readOnly := os.Getenv("READ_ONLY") == "true"
	configPath := os.Getenv("MINARET_CONFIG")
	if configPath == "" {
		configPath = "minaret_config.yaml"
	}

	if haURL == "" || haToken == "" {
		logger.Fatal("HA_URL and HA_TOKEN environment variables must be set")
	}

	logger.Info("Starting Minaret",
		zap.String("version", version),
		zap.String("url", haURL),
		zap.Bool("read_only", readOnly))

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	client := ha.NewClient(haURL, haToken, logger)
	if err := client.Connect(); err != nil {
		logger.Fatal("Failed to connect to Home Assistant", zap.Error(err))
	}
	defer client.Disconnect()

	// Sanity-check the playback targets so misconfigured entity ids surface
	// at startup instead of at the first prayer
	for _, target := range cfg.Playback.MediaPlayers {
		if _, err := client.GetState(target); err != nil {
			logger.Warn("Configured media player not found in Home Assistant",
				zap.String("entity_id", target),
				zap.Error(err))
		}
	}

	clk := clock.NewRealClock()
	status := player.NewStatusTracker(clk, logger)

	mediaDir := cfg.Sounds.MediaDir
	if mediaDir == "" {
		mediaDir = "www/azan"
	}
	library := audio.NewLibrary(mediaDir, logger)

	status.SetDownloading(true)
	if err := library.Prepare(cfg.Sounds); err != nil {
		logger.Error("Audio preparation failed, playback will be skipped until fixed", zap.Error(err))
	}
	status.SetDownloading(false)

	var source provider.Provider
	switch cfg.Provider {
	case config.SourceQatarMOI:
		source = provider.NewQatarMOI(logger)
	default:
		source = provider.NewAlAdhan(cfg.City, cfg.Country, cfg.Method, logger)
	}

	haPlayer := player.NewHAPlayer(client, cfg.Playback, logger)

	sched := scheduler.New(source, haPlayer, library, status, clk, cfg, haPlayer.MediaBase(), logger)

	if cfg.Latitude != nil && cfg.Longitude != nil {
		calc := suncalc.NewCalculator(*cfg.Latitude, *cfg.Longitude, logger)
		sched.SunriseFallback = calc.SunriseOn
	}

	publisher := state.NewPublisher(client, logger, readOnly)
	publish := func() {
		publisher.Publish(sched.Snapshot())
	}
	sched.OnUpdate(publish)
	status.OnChange(publish)

	if err := sched.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	apiServer := api.NewServer(sched, logger, cfg.APIPort)
	apiServer.Start()

	// Push the initial snapshot once everything is running
	publish()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Minaret running. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("API server shutdown failed", zap.Error(err))
	}

	return nil
}
