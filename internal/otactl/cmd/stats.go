package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/internal/otactl/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats [app-id]",
	Short: "Show adoption and rollout statistics for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		stats, err := c.GetStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return output.Print(getOutputFormat(), stats, func() {
			output.PrintTable(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"Success rate", fmt.Sprintf("%.1f%%", stats.Summary.UpdateSuccessRate)},
					{"Succeeded", strconv.Itoa(stats.Summary.SuccessCount)},
					{"Failed", strconv.Itoa(stats.Summary.FailureCount)},
					{"Active versions", strconv.Itoa(stats.Summary.ActiveVersions)},
					{"Total updates", strconv.Itoa(stats.Summary.TotalUpdates)},
				},
			)
			if len(stats.VersionDistribution) > 0 {
				fmt.Println()
				rows := make([][]string, 0, len(stats.VersionDistribution))
				for _, d := range stats.VersionDistribution {
					rows = append(rows, []string{
						d.Version, strconv.Itoa(d.Count), fmt.Sprintf("%.1f%%", d.Percentage),
					})
				}
				output.PrintTable([]string{"VERSION", "DEVICES", "SHARE"}, rows)
			}
			if len(stats.FailureReasons) > 0 {
				fmt.Println()
				rows := make([][]string, 0, len(stats.FailureReasons))
				for _, r := range stats.FailureReasons {
					rows = append(rows, []string{r.Reason, strconv.Itoa(r.Count)})
				}
				output.PrintTable([]string{"FAILURE REASON", "COUNT"}, rows)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
