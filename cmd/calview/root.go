package main

import (
	"time"

	"github.com/spf13/cobra"

	"calview/internal/calendar"
	"calview/internal/clock"
	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/notify"
)

var (
	configPath string
	listenFlag string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "calview",
	Short:         "Calendar view engine",
	Long:          "Computes day, week, month and agenda calendar views from ICS subscriptions and serves them over HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/calview/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&listenFlag, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	rootCmd.Version = version
}

// app is the object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	hub      *notify.Hub
	provider *ics.Provider
	engine   *calendar.Engine
}

// loadApp reads the config, applies flag overrides and builds the engine
// with the ICS provider as its fetch collaborator.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("unknown timezone; falling back to local", "timezone", cfg.Timezone, "err", err)
	}

	hub := notify.NewHub()
	fetcher := ics.NewFetcher(cfg.CacheDir, ics.WithNotifier(hub))
	provider := ics.NewProvider(fetcher, ics.SourcesFromConfig(cfg.ICS), loc)
	engine := calendar.New(calendar.OptionsFromConfig(cfg, loc), provider, clock.System(loc))

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"overlap", cfg.Timeline.Overlap,
		"refresh", cfg.RefreshCron,
		"marker_tick", cfg.MarkerTick,
		"ics_count", len(cfg.ICS),
	)

	return &app{cfg: cfg, loc: loc, hub: hub, provider: provider, engine: engine}, nil
}
