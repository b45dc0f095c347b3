package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/pkg/client"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <cell-id>",
	Short: "Cancel a queued or running cell",
	Long: `Aborts the cell with the given identity. A running worker has its
whole process tree killed; a queued cell is removed. Cancelling an
unknown cell is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL)
		if err := c.Cancel(args[0]); err != nil {
			return err
		}
		fmt.Printf("Cell %s aborted\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
