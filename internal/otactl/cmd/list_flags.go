package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otafleet/otafleet/client"
)

// addListFlags registers the shared pagination and filter flags
func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", 20, "items per page")
	cmd.Flags().String("search", "", "search term")
	cmd.Flags().String("status", "", "status filter")
	cmd.Flags().String("sort-by", "", "sort field")
	cmd.Flags().String("sort-order", "", "sort order (asc, desc)")
}

// listParamsFromFlags reads the shared list flags
func listParamsFromFlags(cmd *cobra.Command) client.ListParams {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")
	status, _ := cmd.Flags().GetString("status")
	sortBy, _ := cmd.Flags().GetString("sort-by")
	sortOrder, _ := cmd.Flags().GetString("sort-order")

	return client.ListParams{
		Page:      page,
		Limit:     limit,
		Search:    search,
		Status:    status,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// printPagination prints a trailing page summary under a table
func printPagination(p client.Pagination) {
	fmt.Printf("\nPage %d of %d (%d total)\n", p.Page, p.TotalPages, p.Total)
}
