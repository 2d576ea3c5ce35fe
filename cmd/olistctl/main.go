package main

import (
	"os"

	"olist-dashboard/cmd/olistctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
