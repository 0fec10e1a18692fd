package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		card       bool
		excerpt    int
		imageOut   string
		withImages bool
	)

	cmd := &cobra.Command{
		Use:   "show <id> [<id>...]",
		Short: "Show post details",
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePostIDs(args)
			if err != nil {
				return err
			}
			if imageOut != "" && len(ids) != 1 {
				return fmt.Errorf("--image-out needs exactly one id")
			}

			return withClient(cfg, func(client *api.Client) error {
				if imageOut != "" {
					return saveImage(cmd, client, ids[0], imageOut)
				}
				if card {
					return showCards(cmd, client, ids, excerpt, *jsonOutput)
				}

				posts := make([]api.PostResponse, 0, len(ids))
				for _, id := range ids {
					post, err := client.GetPost(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !withImages {
						post.Image = nil
					}
					posts = append(posts, post)
				}

				if *jsonOutput {
					if len(posts) == 1 {
						return writeJSON(posts[0])
					}
					return writeJSON(posts)
				}
				if len(posts) == 1 {
					return writePostDetail(posts[0])
				}
				return writePostList(posts)
			})
		},
	}

	cmd.Flags().BoolVar(&card, "card", false, "show the rendered card (excerpt, HTML, data URI)")
	cmd.Flags().IntVar(&excerpt, "excerpt", 0, "card excerpt length in characters")
	cmd.Flags().StringVar(&imageOut, "image-out", "", "write the post image to this file")
	cmd.Flags().BoolVar(&withImages, "images", false, "include image bytes in JSON output")
	return cmd
}

func showCards(cmd *cobra.Command, client *api.Client, ids []int64, excerpt int, structured bool) error {
	cards := make([]api.CardResponse, 0, len(ids))
	for _, id := range ids {
		card, err := client.GetCard(cmd.Context(), id, excerpt)
		if err != nil {
			return err
		}
		cards = append(cards, card)
	}
	if structured {
		if len(cards) == 1 {
			return writeJSON(cards[0])
		}
		return writeJSON(cards)
	}
	for i, card := range cards {
		if i > 0 {
			if err := writePlain("\n"); err != nil {
				return err
			}
		}
		if err := writeCard(card); err != nil {
			return err
		}
	}
	return nil
}

func saveImage(cmd *cobra.Command, client *api.Client, id int64, path string) error {
	data, mediaType, err := client.GetImage(cmd.Context(), id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	return writePlain("wrote %d bytes (%s) to %s\n", len(data), mediaType, path)
}
