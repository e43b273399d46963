package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage device groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List an application's device groups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListGroups(cmd.Context(), args[0], listParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, g := range page.Items {
				rows = append(rows, []string{
					g.ID, g.Name, strconv.Itoa(g.UserCount), output.FormatTime(g.CreatedAt),
				})
			}
			output.PrintTable([]string{"ID", "NAME", "DEVICES", "CREATED"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var groupCreateCmd = &cobra.Command{
	Use:   "create [app-id] [name]",
	Short: "Create a device group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		userIDs, _ := cmd.Flags().GetStringSlice("users")

		c, err := newClient()
		if err != nil {
			return err
		}

		g, err := c.CreateGroup(cmd.Context(), args[0], client.CreateGroupParams{
			Name:        args[1],
			Description: description,
			UserIDs:     userIDs,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Group %q created with %d devices (id: %s)", g.Name, g.UserCount, g.ID))
		return nil
	},
}

var groupGetCmd = &cobra.Command{
	Use:   "get [app-id] [group-id]",
	Short: "Show a group and its membership",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		g, err := c.GetGroup(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), g, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", g.ID},
					{"Name", g.Name},
					{"Description", g.Description},
					{"Devices", strconv.Itoa(g.UserCount)},
					{"Created", output.FormatTime(g.CreatedAt)},
				},
			)
			if len(g.Users) > 0 {
				fmt.Println()
				rows := make([][]string, 0, len(g.Users))
				for _, u := range g.Users {
					rows = append(rows, []string{u.ID, u.DeviceID, u.UserID})
				}
				output.PrintTable([]string{"ID", "DEVICE", "USER"}, rows)
			}
		})
	},
}

var groupUpdateCmd = &cobra.Command{
	Use:   "update [app-id] [group-id]",
	Short: "Update a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params client.UpdateGroupParams
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			params.Name = &name
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			params.Description = &description
		}
		if cmd.Flags().Changed("users") {
			userIDs, _ := cmd.Flags().GetStringSlice("users")
			params.UserIDs = &userIDs
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		g, err := c.UpdateGroup(cmd.Context(), args[0], args[1], params)
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Group %q updated, %d devices", g.Name, g.UserCount))
		return nil
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete [app-id] [group-id]",
	Short: "Delete a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteGroup(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}

		output.Success("Group deleted")
		return nil
	},
}

var groupAddUsersCmd = &cobra.Command{
	Use:   "add-users [app-id] [group-id] [device-id...]",
	Short: "Add devices to a group",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.AddGroupUsers(cmd.Context(), args[0], args[1], args[2:])
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Added %d devices, group now has %d", result.AddedCount, result.UserCount))
		return nil
	},
}

var groupRemoveUsersCmd = &cobra.Command{
	Use:   "remove-users [app-id] [group-id] [device-id...]",
	Short: "Remove devices from a group",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.RemoveGroupUsers(cmd.Context(), args[0], args[1], args[2:])
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Removed %d devices, group now has %d", result.RemovedCount, result.UserCount))
		return nil
	},
}

func init() {
	addListFlags(groupListCmd)

	groupCreateCmd.Flags().String("description", "", "group description")
	groupCreateCmd.Flags().StringSlice("users", nil, "initial device IDs")

	groupUpdateCmd.Flags().String("name", "", "new name")
	groupUpdateCmd.Flags().String("description", "", "new description")
	groupUpdateCmd.Flags().StringSlice("users", nil, "replacement membership")

	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupGetCmd)
	groupCmd.AddCommand(groupUpdateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupAddUsersCmd)
	groupCmd.AddCommand(groupRemoveUsersCmd)
	rootCmd.AddCommand(groupCmd)
}
