package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage update versions",
}

var versionListCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List versions of an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.ListVersions(cmd.Context(), args[0], listParamsFromFlags(cmd))
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), page, func() {
			rows := make([][]string, 0, len(page.Items))
			for _, v := range page.Items {
				rows = append(rows, []string{
					v.ID, v.Version, v.Build, v.Status,
					output.FormatSize(v.FileSize), output.FormatTime(v.CreatedAt),
				})
			}
			output.PrintTable([]string{"ID", "VERSION", "BUILD", "STATUS", "SIZE", "CREATED"}, rows)
			printPagination(page.Pagination)
		})
	},
}

var versionGetCmd = &cobra.Command{
	Use:   "get [app-id] [version-id]",
	Short: "Show a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		v, err := c.GetVersion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), v, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", v.ID},
					{"Version", v.Version},
					{"Build", v.Build},
					{"Name", v.Name},
					{"Status", v.Status},
					{"File", v.FileURL},
					{"Size", output.FormatSize(v.FileSize)},
					{"Checksum", v.Checksum},
					{"Mandatory", fmt.Sprintf("%t", v.IsMandatory)},
					{"Published", output.FormatTimePtr(v.PublishedAt)},
					{"Created", output.FormatTime(v.CreatedAt)},
				},
			)
		})
	},
}

var versionCreateCmd = &cobra.Command{
	Use:   "create [app-id] [file]",
	Short: "Upload an artifact and create a draft version",
	Long: `Upload an update package and create a draft version.

Example:
  otactl version create <app-id> bundle.tar.gz --version 1.2.0 --build 42 --name "Spring release"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")
		build, _ := cmd.Flags().GetString("build")
		name, _ := cmd.Flags().GetString("name")
		if version == "" || build == "" || name == "" {
			return fmt.Errorf("--version, --build and --name are required")
		}
		description, _ := cmd.Flags().GetString("description")
		runtimeVersion, _ := cmd.Flags().GetString("runtime-version")
		mandatory, _ := cmd.Flags().GetBool("mandatory")

		file, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open artifact: %w", err)
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat artifact: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		v, err := c.CreateVersion(cmd.Context(), args[0], client.CreateVersionParams{
			Version:        version,
			Build:          build,
			Name:           name,
			Description:    description,
			RuntimeVersion: runtimeVersion,
			IsMandatory:    mandatory,
		}, filepath.Base(args[1]), file, info.Size())
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Version %s (%s) created as draft (id: %s)", v.Version, v.Build, v.ID))
		return nil
	},
}

var versionCreateByURLCmd = &cobra.Command{
	Use:   "create-by-url [app-id]",
	Short: "Create a draft version from a hosted artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")
		build, _ := cmd.Flags().GetString("build")
		name, _ := cmd.Flags().GetString("name")
		fileURL, _ := cmd.Flags().GetString("file-url")
		fileSize, _ := cmd.Flags().GetInt64("file-size")
		checksum, _ := cmd.Flags().GetString("checksum")
		if version == "" || build == "" || name == "" || fileURL == "" || checksum == "" || fileSize <= 0 {
			return fmt.Errorf("--version, --build, --name, --file-url, --file-size and --checksum are required")
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		v, err := c.CreateVersionByURL(cmd.Context(), args[0], client.CreateVersionByURLParams{
			Version:  version,
			Build:    build,
			Name:     name,
			FileURL:  fileURL,
			FileSize: fileSize,
			Checksum: checksum,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Version %s (%s) created as draft (id: %s)", v.Version, v.Build, v.ID))
		return nil
	},
}

var versionPublishCmd = &cobra.Command{
	Use:   "publish [app-id] [version-id]",
	Short: "Publish a draft version and start its rollout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskType, _ := cmd.Flags().GetString("type")
		userIDs, _ := cmd.Flags().GetStringSlice("target-users")
		groupIDs, _ := cmd.Flags().GetStringSlice("target-groups")

		c, err := newClient()
		if err != nil {
			return err
		}

		ack, err := c.PublishVersion(cmd.Context(), args[0], args[1], client.PublishVersionParams{
			Type:           taskType,
			TargetUserIDs:  userIDs,
			TargetGroupIDs: groupIDs,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Version published, rollout task %s is %s", ack.TaskID, ack.Status))
		return nil
	},
}

var versionRollbackCmd = &cobra.Command{
	Use:   "rollback [app-id] [version-id]",
	Short: "Roll a published version back to a prior one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		toVersionID, _ := cmd.Flags().GetString("to")
		if toVersionID == "" {
			return fmt.Errorf("--to is required")
		}
		reason, _ := cmd.Flags().GetString("reason")

		c, err := newClient()
		if err != nil {
			return err
		}

		ack, err := c.RollbackVersion(cmd.Context(), args[0], args[1], client.RollbackVersionParams{
			ToVersionID: toVersionID,
			Reason:      reason,
		})
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Rollback started, task %s is %s", ack.TaskID, ack.Status))
		return nil
	},
}

var versionDeleteCmd = &cobra.Command{
	Use:   "delete [app-id] [version-id]",
	Short: "Delete a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteVersion(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}

		output.Success("Version deleted")
		return nil
	},
}

func init() {
	addListFlags(versionListCmd)

	versionCreateCmd.Flags().String("version", "", "semantic version (e.g. 1.2.0)")
	versionCreateCmd.Flags().String("build", "", "build number")
	versionCreateCmd.Flags().String("name", "", "release name")
	versionCreateCmd.Flags().String("description", "", "release notes")
	versionCreateCmd.Flags().String("runtime-version", "", "required runtime version")
	versionCreateCmd.Flags().Bool("mandatory", false, "mark the update as mandatory")

	versionCreateByURLCmd.Flags().String("version", "", "semantic version")
	versionCreateByURLCmd.Flags().String("build", "", "build number")
	versionCreateByURLCmd.Flags().String("name", "", "release name")
	versionCreateByURLCmd.Flags().String("file-url", "", "artifact URL or staged /uploads path")
	versionCreateByURLCmd.Flags().Int64("file-size", 0, "artifact size in bytes")
	versionCreateByURLCmd.Flags().String("checksum", "", "artifact sha256")

	versionPublishCmd.Flags().String("type", "", "rollout type (full, targeted)")
	versionPublishCmd.Flags().StringSlice("target-users", nil, "device IDs for a targeted rollout")
	versionPublishCmd.Flags().StringSlice("target-groups", nil, "group IDs for a targeted rollout")

	versionRollbackCmd.Flags().String("to", "", "version ID to roll back to")
	versionRollbackCmd.Flags().String("reason", "", "reason recorded in the audit trail")

	versionCmd.AddCommand(versionListCmd)
	versionCmd.AddCommand(versionGetCmd)
	versionCmd.AddCommand(versionCreateCmd)
	versionCmd.AddCommand(versionCreateByURLCmd)
	versionCmd.AddCommand(versionPublishCmd)
	versionCmd.AddCommand(versionRollbackCmd)
	versionCmd.AddCommand(versionDeleteCmd)
	rootCmd.AddCommand(versionCmd)
}
