package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"olist-dashboard/internal/config"
	"olist-dashboard/internal/dataset"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/profiles"
	"olist-dashboard/internal/services"
)

var (
	dataDir     string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "olistctl",
	Short: "Offline tools for the Olist segmentation pipeline",
	Long: `olistctl runs the customer aggregation pipeline without the web
dashboard: inspect dataset resolution, export the aggregate table, or
print segment counts for a pair of thresholds.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "dataset directory (overrides DATASET_DIR)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "presentation profile (overrides PROFILE_NAME)")
}

// loadEnvironment builds the shared pieces every subcommand needs:
// config (with flag overrides), logger, loader, profile and the
// analytics service.
func loadEnvironment() (*config.Config, *slog.Logger, *dataset.Loader, *profiles.Profile, *services.Analytics, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if dataDir != "" {
		cfg.Dataset.Dir = dataDir
	}
	if profileName != "" {
		cfg.Profile.Name = profileName
		cfg.Profile.File = ""
	}

	logger := observability.NewLogger(cfg.Logger)

	profile, err := profiles.Load(cfg.Profile.Name, cfg.Profile.File)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	loader := dataset.NewLoader(cfg.Dataset, logger)
	analytics := services.NewAnalytics(services.BuildOptions{
		DelayPolicy: cfg.Pipeline.DelayPolicy,
		Grades: services.GradeBands{
			Cuts:  profile.Tiers.Cuts,
			Names: profile.Tiers.Names,
		},
	}, cfg.Dataset.CacheDir, logger)

	return cfg, logger, loader, profile, analytics, nil
}
