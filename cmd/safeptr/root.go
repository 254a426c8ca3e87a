package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/rawbytedev/safeptr/internal/script"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	memProfile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "safeptr",
	Short:         "safeptr - run ownership scenarios against Box and ArrayBox",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		if err != nil {
			return err
		}
		if memProfile != "" {
			runtime.MemProfileRate = 1
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		if memProfile == "" {
			return nil
		}
		return writeHeapProfile(memProfile)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log allocation and ownership events")
	rootCmd.PersistentFlags().StringVar(&memProfile, "memprofile", "", "write a heap profile to this path after the run")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(demoCmd)
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

// errStepsFailed makes the process exit non-zero once reports are printed.
var errStepsFailed = errors.New("scenario steps failed")

// runScenarios executes every scenario and prints one line per step.
func runScenarios(w io.Writer, scenarios []script.Scenario) error {
	r := script.NewRunner(logger)
	failed := 0
	for _, s := range scenarios {
		rep := r.Run(s)
		fmt.Fprintf(w, "== %s\n", rep.Scenario)
		for _, st := range rep.Steps {
			status := "ok  "
			if !st.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(w, "%s %3d %-10s %s", status, st.Step, st.Op, st.Handle)
			if st.Detail != "" {
				fmt.Fprintf(w, ": %s", st.Detail)
			}
			fmt.Fprintln(w)
		}
		failed += rep.Failed()
	}
	if failed > 0 {
		fmt.Fprintf(w, "%d step(s) failed\n", failed)
		return errStepsFailed
	}
	return nil
}
