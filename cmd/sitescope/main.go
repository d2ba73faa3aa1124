package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "sitescope"}

	root.AddCommand(serveCMD(), analyzeCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
