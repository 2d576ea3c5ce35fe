package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var aggregateOut string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build the customer aggregate and dump it as JSON",
	RunE:  runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateOut, "out", "", "output file (default: stdout)")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	_, _, loader, _, analytics, err := loadEnvironment()
	if err != nil {
		return err
	}

	if err := analytics.Load(cmd.Context(), loader); err != nil {
		return err
	}

	table, err := analytics.Table()
	if err != nil {
		return err
	}

	out := os.Stdout
	if aggregateOut != "" {
		f, err := os.Create(aggregateOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table.Rows); err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %d customers\n", len(table.Rows))
	return nil
}
