package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage applications",
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListApps(cmd.Context(), listParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, app := range page.Items {
				rows = append(rows, []string{
					app.ID, app.Name, app.AppID, app.Status,
					app.CurrentVersion, fmt.Sprintf("%d", app.UserCount),
				})
			}
			output.PrintTable([]string{"ID", "NAME", "APP ID", "STATUS", "CURRENT", "DEVICES"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var appCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an application",
	Long: `Create an application.

Example:
  otactl app create "My App" --app-id com.example.myapp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, _ := cmd.Flags().GetString("app-id")
		if appID == "" {
			return fmt.Errorf("--app-id is required")
		}
		description, _ := cmd.Flags().GetString("description")

		c, err := newClient()
		if err != nil {
			return err
		}

		app, err := c.CreateApp(cmd.Context(), client.CreateAppParams{
			Name:        args[0],
			AppID:       appID,
			Description: description,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Application %s created (id: %s)", app.Name, app.ID))
		return nil
	},
}

var appGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		app, err := c.GetApp(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), app, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", app.ID},
					{"Name", app.Name},
					{"App ID", app.AppID},
					{"Status", app.Status},
					{"Current version", app.CurrentVersion},
					{"Devices", fmt.Sprintf("%d", app.UserCount)},
					{"Versions", fmt.Sprintf("%d", app.Versions)},
					{"Created", output.FormatTime(app.CreatedAt)},
				},
			)
		})
	},
}

var appUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := client.UpdateAppParams{}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			params.Name = &name
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			params.Description = &description
		}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			params.Status = &status
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		app, err := c.UpdateApp(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Application %s updated", app.Name))
		return nil
	},
}

var appDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an application and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteApp(cmd.Context(), args[0]); err != nil {
			return err
		}

		output.Success("Application deleted")
		return nil
	},
}

var appSetCurrentCmd = &cobra.Command{
	Use:   "set-current [id] [version-id]",
	Short: "Point an application at a published version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		app, err := c.SetCurrentVersion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Current version of %s is now %s", app.Name, app.CurrentVersion))
		return nil
	},
}

func init() {
	appCreateCmd.Flags().String("app-id", "", "bundle identifier (e.g. com.example.app)")
	appCreateCmd.Flags().String("description", "", "application description")

	appUpdateCmd.Flags().String("name", "", "new name")
	appUpdateCmd.Flags().String("description", "", "new description")
	appUpdateCmd.Flags().String("status", "", "new status (active, inactive)")

	addListFlags(appListCmd)

	appCmd.AddCommand(appListCmd)
	appCmd.AddCommand(appCreateCmd)
	appCmd.AddCommand(appGetCmd)
	appCmd.AddCommand(appUpdateCmd)
	appCmd.AddCommand(appDeleteCmd)
	appCmd.AddCommand(appSetCurrentCmd)
	rootCmd.AddCommand(appCmd)
}
