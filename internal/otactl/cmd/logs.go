package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Browse and export the audit trail",
}

func logParamsFromFlags(cmd *cobra.Command) client.LogListParams {
	logType, _ := cmd.Flags().GetString("type")
	userID, _ := cmd.Flags().GetString("user")
	startDate, _ := cmd.Flags().GetString("start-date")
	endDate, _ := cmd.Flags().GetString("end-date")
	return client.LogListParams{
		ListParams: listParamsFromFlags(cmd),
		Type:       logType,
		UserID:     userID,
		StartDate:  startDate,
		EndDate:    endDate,
	}
}

func addLogFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "filter by entry type (version, device, group, app, user, auth, task)")
	cmd.Flags().String("user", "", "filter by acting user ID")
	cmd.Flags().String("start-date", "", "include entries from this date (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "include entries up to this date (YYYY-MM-DD)")
}

var logsListCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List audit entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListLogs(cmd.Context(), args[0], logParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, entry := range page.Items {
				rows = append(rows, []string{
					entry.ID, entry.Type, entry.Action, entry.Status,
					output.FormatTime(entry.CreatedAt),
				})
			}
			output.PrintTable([]string{"ID", "TYPE", "ACTION", "STATUS", "WHEN"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var logsExportCmd = &cobra.Command{
	Use:   "export [app-id]",
	Short: "Export the filtered audit trail to a file",
	Long: `Export audit entries as CSV or XLSX.

Example:
  otactl logs export <app-id> --format xlsx --start-date 2026-08-01 -f logs.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unsupported export format %q: expected csv or xlsx", format)
		}
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = fmt.Sprintf("logs_%s.%s", time.Now().Format("20060102_150405"), format)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		data, err := c.ExportLogs(cmd.Context(), args[0], format, logParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		output.Success(fmt.Sprintf("Exported %s (%s)", path, output.FormatSize(int64(len(data)))))
		return nil
	},
}

func init() {
	addListFlags(logsListCmd)
	addLogFilterFlags(logsListCmd)

	addLogFilterFlags(logsExportCmd)
	logsExportCmd.Flags().String("format", "csv", "export format (csv, xlsx)")
	logsExportCmd.Flags().StringP("file", "f", "", "output path (defaults to a timestamped name)")

	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsExportCmd)
	rootCmd.AddCommand(logsCmd)
}
