package main

import (
	"bytes"
	_ "embed"

	"github.com/rawbytedev/safeptr/internal/script"
	"github.com/spf13/cobra"
)

//go:embed demo.yaml
var demoScenarios []byte

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in ownership scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios, err := script.Load(bytes.NewReader(demoScenarios))
		if err != nil {
			return err
		}
		return runScenarios(cmd.OutOrStdout(), scenarios)
	},
}
