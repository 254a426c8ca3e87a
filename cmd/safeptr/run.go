package main

import (
	"github.com/rawbytedev/safeptr/internal/script"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Run scenario files",
	Long: `Runs YAML scenario files. Each document names a scenario and lists steps
such as new_box, write, read, copy, move, transfer and their expected outcome.
Example) safeptr run scenarios/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var all []script.Scenario
		for _, path := range args {
			scenarios, err := script.LoadFile(path)
			if err != nil {
				return err
			}
			all = append(all, scenarios...)
		}
		return runScenarios(cmd.OutOrStdout(), all)
	},
}
