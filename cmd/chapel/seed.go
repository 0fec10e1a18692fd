package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"chapel/internal/config"
	"chapel/internal/store"
)

const imageFetchTimeout = 20 * time.Second

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var fetchImages bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the example posts into an empty blog",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var fetch store.ImageFetcher
			if fetchImages || cfg.Seed.FetchImages {
				fetch = httpImageFetcher(nil, cfg.Images.MaxUploadBytes)
			}

			created, err := store.SeedExamples(cmd.Context(), st, fetch, slog.Default().With("component", "seed"))
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]int{"created": created})
			}
			if created == 0 {
				return writePlain("blog already has posts; nothing seeded\n")
			}
			return writePlain("created: %d\n", created)
		},
	}

	cmd.Flags().BoolVar(&fetchImages, "fetch-images", false, "download the example images")
	return cmd
}

// httpImageFetcher downloads images with client, refusing bodies larger
// than maxBytes.
func httpImageFetcher(client *http.Client, maxBytes int64) store.ImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: imageFetchTimeout}
	}
	if maxBytes <= 0 {
		maxBytes = config.DefaultImageMaxUploadBytes
	}

	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("fetch %s: image exceeds %d bytes", url, maxBytes)
		}
		return data, nil
	}
}
