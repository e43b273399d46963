package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts (admin only)",
}

func promptPassword(label string) (string, error) {
	if password := os.Getenv("OTAFLEET_PASSWORD"); password != "" {
		return password, nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operator accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")

		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListUsers(cmd.Context(), listParamsFromFlags(cmd), role)
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, u := range page.Items {
				rows = append(rows, []string{
					u.ID, u.Name, u.Email, u.Role, u.Status,
					output.FormatTimePtr(u.LastLoginAt),
				})
			}
			output.PrintTable([]string{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "LAST LOGIN"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create [email]",
	Short: "Create an operator account",
	Long: `Create an operator account.

The password is read from the OTAFLEET_PASSWORD environment variable
or prompted for interactively.

Example:
  otactl user create ops@example.com --name "Release Ops" --role app_manager --apps <app-id>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		role, _ := cmd.Flags().GetString("role")
		appIDs, _ := cmd.Flags().GetStringSlice("apps")

		password, err := promptPassword("Password")
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		u, err := c.CreateUser(cmd.Context(), client.CreateUserParams{
			Name:     name,
			Email:    args[0],
			Password: password,
			Role:     role,
			AppIDs:   appIDs,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("User %s created as %s (id: %s)", u.Email, u.Role, u.ID))
		return nil
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update [user-id]",
	Short: "Update an operator account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params client.UpdateUserParams
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			params.Name = &name
		}
		if cmd.Flags().Changed("role") {
			role, _ := cmd.Flags().GetString("role")
			params.Role = &role
		}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			params.Status = &status
		}
		if cmd.Flags().Changed("apps") {
			appIDs, _ := cmd.Flags().GetStringSlice("apps")
			params.AppIDs = &appIDs
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		u, err := c.UpdateUser(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}

		scope := "all apps"
		if u.Role == "app_manager" {
			scope = fmt.Sprintf("%d apps", len(u.AppIDs))
		}
		output.Success(fmt.Sprintf("User %s updated: %s, %s", u.Email, u.Role, scope))
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [user-id]",
	Short: "Delete an operator account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}

		output.Success("User deleted")
		return nil
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password [user-id]",
	Short: "Set a new password for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("New password")
		if err != nil {
			return err
		}
		if strings.TrimSpace(password) == "" {
			return fmt.Errorf("password must not be empty")
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.ResetUserPassword(cmd.Context(), args[0], password); err != nil {
			return err
		}

		output.Success("Password reset; existing sessions were revoked")
		return nil
	},
}

var userToggleStatusCmd = &cobra.Command{
	Use:   "toggle-status [user-id]",
	Short: "Flip an account between active and inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.ToggleUserStatus(cmd.Context(), args[0]); err != nil {
			return err
		}

		output.Success("User status toggled")
		return nil
	},
}

func init() {
	addListFlags(userListCmd)
	userListCmd.Flags().String("role", "", "filter by role (admin, app_manager, viewer)")

	userCreateCmd.Flags().String("name", "", "display name")
	userCreateCmd.Flags().String("role", "", "role (admin, app_manager, viewer; default viewer)")
	userCreateCmd.Flags().StringSlice("apps", nil, "app IDs an app_manager may administer")

	userUpdateCmd.Flags().String("name", "", "new display name")
	userUpdateCmd.Flags().String("role", "", "new role")
	userUpdateCmd.Flags().String("status", "", "new status (active, inactive)")
	userUpdateCmd.Flags().StringSlice("apps", nil, "replacement app scope")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userUpdateCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userResetPasswordCmd)
	userCmd.AddCommand(userToggleStatusCmd)
	rootCmd.AddCommand(userCmd)
}
