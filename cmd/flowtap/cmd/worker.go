package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/internal/worker"
)

var workerSpoolPath string

// workerCmd is the out-of-process worker mode the supervisor re-execs
// into. Not meant to be invoked by hand, hence hidden.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Execute one spooled submission (internal)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if workerSpoolPath == "" {
			return fmt.Errorf("--spool is required")
		}
		os.Exit(worker.RunSpooled(workerSpoolPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerSpoolPath, "spool", "", "path to the spooled submission")
}
