package main

import (
	"sort"

	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database and schema info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("backend: %s\n", resp.Backend)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("total_posts: %d\n", resp.TotalPosts)

				categories := make([]string, 0, len(resp.CategoryCounts))
				for category := range resp.CategoryCounts {
					categories = append(categories, category)
				}
				sort.Strings(categories)
				for _, category := range categories {
					_ = writePlain("  %s: %d\n", category, resp.CategoryCounts[category])
				}
				return nil
			})
		},
	}
	return cmd
}
