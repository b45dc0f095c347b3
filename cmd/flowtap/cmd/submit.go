package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/pkg/client"
)

var (
	submitCellID string
	submitArgs   string
)

var submitCmd = &cobra.Command{
	Use:   "submit [script-file]",
	Short: "Submit a workflow cell to the supervisor",
	Long: `Submits workflow code under a cell identity. The code is read from
the given file, or from stdin when no file is named. Submitting again
under the same identity replaces the earlier submission.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitCellID, "cell-id", "", "cell identity (generated when empty)")
	submitCmd.Flags().StringVar(&submitArgs, "args", "", "raw argument string passed to the engine")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	var code []byte
	var err error
	if len(args) == 1 {
		code, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
	} else {
		code, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	cellID := submitCellID
	if cellID == "" {
		cellID = uuid.New().String()
	}

	c := client.New(serverURL)
	status, err := c.Run(cellID, string(code), submitArgs)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if status.Position > 0 {
		fmt.Printf("Cell %s submitted: #%d in queue\n", status.CellID, status.Position)
	} else {
		fmt.Printf("Cell %s failed to start; check its status\n", status.CellID)
	}
	return nil
}
