package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	vigialert "github.com/bluelight-labs/vigia/internal/alert"
	"github.com/bluelight-labs/vigia/internal/classifier"
	"github.com/bluelight-labs/vigia/internal/geocode"
	"github.com/bluelight-labs/vigia/internal/history"
	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/notifier"
	"github.com/bluelight-labs/vigia/internal/pipeline"
	"github.com/bluelight-labs/vigia/internal/warehouse"
	"github.com/bluelight-labs/vigia/pkg/config"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vigia",
	Short: "Vigia - Incident enrichment and context alerting pipeline",
	Long: `Vigia pulls public-safety incident reports from the warehouse,
classifies and enriches them with an LLM, associates them with monitored
contexts and delivers alerts to the requesting agencies.`,
	RunE: runPipeline,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline",
	RunE:  runPipeline,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create warehouse tables and the local alert history schema",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vigia %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*Config, error) {
	if configFile != "" {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.Verbose = verbose
		return cfg, nil
	}
	cfg := DefaultConfig()
	cfg.Verbose = verbose
	return cfg, nil
}

func openStores(cfg *Config) (*warehouse.Warehouse, *history.Store, error) {
	wh := warehouse.New(&warehouse.Config{
		Addresses: cfg.Warehouse.Addresses,
		Database:  cfg.Warehouse.Database,
		Username:  cfg.Warehouse.Username,
		Password:  cfg.Warehouse.Password,
	})
	if err := wh.Open(); err != nil {
		return nil, nil, fmt.Errorf("open warehouse: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0750); err != nil {
		wh.Close()
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	store := history.New(cfg.History.Path)
	if err := store.Open(); err != nil {
		wh.Close()
		return nil, nil, fmt.Errorf("open alert history: %w", err)
	}
	return wh, store, nil
}

func newLLMClient(cfg *Config) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key or VIGIA_LLM_API_KEY is required")
	}
	pricing := llm.Pricing{
		InputPerMillion:  cfg.LLM.InputPerMillion,
		OutputPerMillion: cfg.LLM.OutputPerMillion,
	}
	switch cfg.LLM.Backend {
	case "gemini":
		return llm.NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model, llm.WithGeminiPricing(pricing)), nil
	case "openai":
		return llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, llm.WithOpenAIPricing(pricing)), nil
	default:
		return nil, fmt.Errorf("unsupported llm backend %q", cfg.LLM.Backend)
	}
}

func buildDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	d := notifier.NewDispatcher()
	for name, nc := range cfg.Notifiers {
		n, err := notifier.NewWebhookNotifier(name, notifier.WebhookConfig{
			URL:              nc.URL,
			MaxMessageLength: nc.MaxMessageLength,
			RatePerSecond:    nc.RatePerSecond,
			Burst:            nc.Burst,
		})
		if err != nil {
			return nil, fmt.Errorf("notifier %s: %w", name, err)
		}
		d.Register(n)
	}
	return d, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wh, store, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer wh.Close()
	defer store.Close()

	if err := wh.Migrate(); err != nil {
		return fmt.Errorf("migrate warehouse: %w", err)
	}
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate alert history: %w", err)
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	var geocoder geocode.Geocoder
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewGoogleGeocoder(cfg.Geocode.APIKey)
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}
	defer dispatcher.Close()
	if len(cfg.Notifiers) == 0 {
		log.Printf("no notifiers configured, alerts will be built but not delivered")
	}

	var sender pipeline.Sender
	if len(cfg.Notifiers) > 0 {
		sender = vigialert.NewSender(store, dispatcher)
	}

	runner, err := pipeline.NewRunner(wh, classifier.NewSet(client, nil), geocoder, sender, pipeline.Options{
		Lookback:         time.Duration(cfg.Pipeline.LookbackMinutes) * time.Minute,
		ExcludeSources:   cfg.Pipeline.ExcludeSources,
		EnableCategories: cfg.Pipeline.EnableCategories,
		BufferMeters:     cfg.Pipeline.BufferMeters,
		Batch: classifier.BatchOptions{
			UseThreading: cfg.Pipeline.UseThreading,
			MaxWorkers:   cfg.Pipeline.MaxWorkers,
		},
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)
		srv := metrics.NewServer(cfg.Metrics.Address)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	log.Printf("starting vigia %s (backend=%s, model=%s)", config.Version, cfg.LLM.Backend, client.Name())

	if cfg.Pipeline.IntervalMinutes <= 0 {
		_, err := runner.Run(ctx)
		return err
	}

	interval := time.Duration(cfg.Pipeline.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("running every %s", interval)
	for {
		if _, err := runner.Run(ctx); err != nil {
			log.Printf("pipeline run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("pipeline stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wh, store, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer wh.Close()
	defer store.Close()

	if err := wh.Migrate(); err != nil {
		return fmt.Errorf("migrate warehouse: %w", err)
	}
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate alert history: %w", err)
	}

	log.Printf("migrations applied (warehouse=%s, history=%s)", cfg.Warehouse.Database, cfg.History.Path)
	return nil
}
