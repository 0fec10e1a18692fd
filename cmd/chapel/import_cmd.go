package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import [<file>]",
		Short: "Create posts from an NDJSON export",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, root, err := importSource(args, dir)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if inputPath != "-" {
				f, err := os.Open(inputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var records bytes.Buffer
			count, err := resolveImageKeys(cmd.Context(), in, root, &records)
			if err != nil {
				return err
			}
			if count == 0 {
				return errors.New("no records found in input")
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Import(cmd.Context(), &records)
				if err != nil {
					if resp.Created > 0 {
						return fmt.Errorf("%w (already stored %d posts: %s)", err, resp.Created, joinIDs(resp.PostIDs))
					}
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}
				for _, msg := range resp.Messages {
					if err := writePlain("error: %s\n", msg); err != nil {
						return err
					}
				}
				return writePlain("created: %d, errors: %d\n", resp.Created, resp.Errors)
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "import a directory written by export --dir")
	return cmd
}

// importSource returns the records file and the directory image keys are
// resolved against.
func importSource(args []string, dir string) (string, string, error) {
	switch {
	case dir != "" && len(args) > 0:
		return "", "", errors.New("pass either a file or --dir, not both")
	case dir != "":
		return filepath.Join(dir, exportRecordsFile), dir, nil
	case len(args) == 1 && args[0] == "-":
		return "-", ".", nil
	case len(args) == 1:
		return args[0], filepath.Dir(args[0]), nil
	case len(args) > 1:
		return "", "", errors.New("import takes a single file")
	default:
		return "", "", errors.New("input file or --dir is required")
	}
}
