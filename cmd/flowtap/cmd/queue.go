package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/pkg/client"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the submission queue",
	RunE:  runQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	c := client.New(serverURL)
	entries, err := c.Queue()
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Cell ID", "State", "PID")
	for _, e := range entries {
		pid := "-"
		if e.PID != 0 {
			pid = fmt.Sprintf("%d", e.PID)
		}
		table.Append(fmt.Sprintf("%d", e.Position), e.CellID, e.State, pid)
	}
	table.Render()
	return nil
}
