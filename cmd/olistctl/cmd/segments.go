package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"olist-dashboard/internal/models"
)

var (
	segmentsMonetary     float64
	segmentsSatisfaction float64
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Print segment counts for a pair of thresholds",
	RunE:  runSegments,
}

func init() {
	segmentsCmd.Flags().Float64Var(&segmentsMonetary, "monetary", 0, "monetary threshold (0 = population median)")
	segmentsCmd.Flags().Float64Var(&segmentsSatisfaction, "satisfaction", 3.5, "satisfaction threshold (1-5)")
	rootCmd.AddCommand(segmentsCmd)
}

func runSegments(cmd *cobra.Command, args []string) error {
	if segmentsSatisfaction < 1 || segmentsSatisfaction > 5 {
		return fmt.Errorf("satisfaction threshold must be within the 1-5 review scale")
	}

	cfg, _, loader, profile, analytics, err := loadEnvironment()
	if err != nil {
		return err
	}

	if err := analytics.Load(cmd.Context(), loader); err != nil {
		return err
	}

	th := analytics.DefaultThresholds(models.Thresholds{
		Monetary:     segmentsMonetary,
		Satisfaction: segmentsSatisfaction,
	})

	view, err := analytics.Segmentation(th, cfg.Pipeline.SampleSize)
	if err != nil {
		return err
	}

	fmt.Printf("thresholds: monetary=%.2f satisfaction=%.1f (%d customers)\n\n", th.Monetary, th.Satisfaction, view.Total)
	for _, s := range view.Summaries {
		categories := strings.Join(s.TopCategories, ", ")
		if categories == "" {
			categories = "-"
		}
		fmt.Printf("%-28s %8d  %5.1f%%  %s\n", profile.Label(s.Quadrant), s.Count, s.Share*100, categories)
	}
	return nil
}
