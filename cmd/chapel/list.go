package main

import (
	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		category   string
		withImages bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListPosts(cmd.Context(), category, withImages)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePostList(resp)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only posts in this category ("+categoryChoices()+")")
	cmd.Flags().BoolVar(&withImages, "images", false, "include image bytes in JSON output")
	return cmd
}

func newSearchCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var withImages bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find posts whose title or content contains the query",
		Args:  requireAtLeastArgs(1, "query is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.SearchPosts(cmd.Context(), joinArgs(args), withImages)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePostList(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&withImages, "images", false, "include image bytes in JSON output")
	return cmd
}

func newRecentCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.RecentPosts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePostList(resp)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of posts")
	return cmd
}
