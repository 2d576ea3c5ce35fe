package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show dataset search-path resolution",
	RunE:  runPaths,
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}

func runPaths(cmd *cobra.Command, args []string) error {
	_, _, loader, _, _, err := loadEnvironment()
	if err != nil {
		return err
	}

	fmt.Printf("marker file: %s\n", loader.MarkerFile())
	for i, p := range loader.SearchPaths() {
		fmt.Printf("  %d. %s\n", i+1, p)
	}

	dir, err := loader.Resolve()
	if err != nil {
		fmt.Println("resolved: (not found)")
		return err
	}
	fmt.Printf("resolved: %s\n", dir)
	return nil
}
