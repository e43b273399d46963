package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/internal/otactl/output"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect rollout tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List an application's rollout tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListTasks(cmd.Context(), args[0], listParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, t := range page.Items {
				rows = append(rows, []string{
					t.ID, t.Type, t.Status,
					fmt.Sprintf("%d/%d", t.SuccessCount, t.SuccessCount+t.FailureCount),
					output.FormatTime(t.CreatedAt),
				})
			}
			output.PrintTable([]string{"ID", "TYPE", "STATUS", "OK/TOTAL", "CREATED"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get [app-id] [task-id]",
	Short: "Show a rollout task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		t, err := c.GetTask(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), t, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", t.ID},
					{"Version", t.VersionID},
					{"Type", t.Type},
					{"Status", t.Status},
					{"Progress", fmt.Sprintf("%.0f%%", t.Progress)},
					{"Succeeded", fmt.Sprintf("%d", t.SuccessCount)},
					{"Failed", fmt.Sprintf("%d", t.FailureCount)},
					{"Scheduled", output.FormatTimePtr(t.ScheduledAt)},
					{"Started", output.FormatTimePtr(t.StartedAt)},
					{"Completed", output.FormatTimePtr(t.CompletedAt)},
					{"Created", output.FormatTime(t.CreatedAt)},
				},
			)
		})
	},
}

func init() {
	addListFlags(taskListCmd)

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskGetCmd)
	rootCmd.AddCommand(taskCmd)
}
