package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/pkg/client"
)

var statusShowLogs bool

var statusCmd = &cobra.Command{
	Use:   "status <cell-id>",
	Short: "Show the last-known status of a cell",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusShowLogs, "logs", false, "also print the cell's retained output")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cellID := args[0]
	c := client.New(serverURL)

	rec, err := c.Status(cellID)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("Cell ID", rec.CellID)
		table.Append("Status", string(rec.Status))
		if rec.Position > 0 {
			table.Append("Position", fmt.Sprintf("%d", rec.Position))
		}
		if rec.Error != "" {
			table.Append("Error", rec.Error)
		}
		table.Append("Updated At", rec.UpdatedAt.Format(time.RFC3339))
		table.Render()
	}

	if statusShowLogs {
		lines, err := c.Logs(cellID)
		if err != nil {
			return err
		}
		fmt.Println()
		for _, line := range lines {
			fmt.Println(line)
		}
	}
	return nil
}
