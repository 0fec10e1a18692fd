package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

func newExportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		outputPath string
		dir        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all posts as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath != "" && dir != "" {
				return fmt.Errorf("--output and --dir are mutually exclusive")
			}
			if dir == "" && *jsonOutput {
				return fmt.Errorf("export always emits NDJSON; remove --json")
			}

			return withClient(cfg, func(client *api.Client) error {
				if dir != "" {
					var buf bytes.Buffer
					if err := client.Export(cmd.Context(), &buf); err != nil {
						return err
					}
					summary, err := writeExportDir(cmd.Context(), &buf, dir)
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(summary)
					}
					return writePlain("exported %d posts and %d images to %s\n", summary.Posts, summary.Images, summary.Dir)
				}

				w := os.Stdout
				if outputPath != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return client.Export(cmd.Context(), w)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&dir, "dir", "", "write posts.ndjson, images and Markdown files into this directory")

	return cmd
}
