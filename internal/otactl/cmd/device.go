package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage an application's device fleet",
}

var deviceListCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List devices registered to an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")
		platform, _ := cmd.Flags().GetString("platform")

		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListDevices(cmd.Context(), args[0], client.DeviceListParams{
			ListParams: listParamsFromFlags(cmd),
			Version:    version,
			Platform:   platform,
		})
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, d := range page.Items {
				rows = append(rows, []string{
					d.ID, d.DeviceID, d.Status,
					d.CurrentVersion, output.FormatTimePtr(d.LastUpdateAt),
				})
			}
			output.PrintTable([]string{"ID", "DEVICE", "STATUS", "VERSION", "LAST UPDATE"}, rows)
			fmt.Printf("\n%d devices, %d online, %d offline\n",
				page.Stats.Total, page.Stats.Online, page.Stats.Offline)
			printPagination(page.Pagination)
		})
	},
}

var deviceGetCmd = &cobra.Command{
	Use:   "get [app-id] [device-id]",
	Short: "Show a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		d, err := c.GetDevice(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), d, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", d.ID},
					{"Device", d.DeviceID},
					{"User", d.UserID},
					{"Status", d.Status},
					{"Current version", d.CurrentVersion},
					{"Target version", d.TargetVersionID},
					{"Last update", output.FormatTimePtr(d.LastUpdateAt)},
				},
			)
		})
	},
}

var deviceSetTargetCmd = &cobra.Command{
	Use:   "set-target [app-id] [device-id] [version-id]",
	Short: "Pin a device to a target version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		d, err := c.SetDeviceTargetVersion(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Device %s pinned to version %s", d.ID, d.TargetVersionID))
		return nil
	},
}

var deviceUpdateCmd = &cobra.Command{
	Use:   "update [app-id] [device-id] [version-id]",
	Short: "Push a version to a single device",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		c, err := newClient()
		if err != nil {
			return err
		}

		ack, err := c.UpdateDevice(cmd.Context(), args[0], args[1], args[2], force)
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Update task %s is %s", ack.TaskID, ack.Status))
		return nil
	},
}

var deviceBatchUpdateCmd = &cobra.Command{
	Use:   "batch-update [app-id] [version-id] [device-id...]",
	Short: "Push a version to a set of devices",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ack, err := c.BatchUpdateDevices(cmd.Context(), args[0], args[2:], args[1])
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Update task %s queued for %d devices", ack.TaskID, ack.AffectedCount))
		return nil
	},
}

var deviceRollbackCmd = &cobra.Command{
	Use:   "rollback [app-id] [device-id] [version-id]",
	Short: "Roll a single device back to a prior version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		c, err := newClient()
		if err != nil {
			return err
		}

		ack, err := c.RollbackDevice(cmd.Context(), args[0], args[1], args[2], reason)
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Rollback task %s is %s", ack.TaskID, ack.Status))
		return nil
	},
}

func init() {
	addListFlags(deviceListCmd)
	deviceListCmd.Flags().String("version", "", "filter by current version")
	deviceListCmd.Flags().String("platform", "", "filter by platform (ios, android)")

	deviceUpdateCmd.Flags().Bool("force", false, "push even when the device already runs the version")
	deviceRollbackCmd.Flags().String("reason", "", "reason recorded in the audit trail")

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceGetCmd)
	deviceCmd.AddCommand(deviceSetTargetCmd)
	deviceCmd.AddCommand(deviceUpdateCmd)
	deviceCmd.AddCommand(deviceBatchUpdateCmd)
	deviceCmd.AddCommand(deviceRollbackCmd)
	rootCmd.AddCommand(deviceCmd)
}
