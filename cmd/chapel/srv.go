package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chapel/internal/config"
	"chapel/internal/server"
	"chapel/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the chapel API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath, "backend", cfg.StorageBackend)
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Seed.OnStart {
				var fetch store.ImageFetcher
				if cfg.Seed.FetchImages {
					fetch = httpImageFetcher(nil, cfg.Images.MaxUploadBytes)
				}
				if _, err := store.SeedExamples(ctx, st, fetch, logger); err != nil {
					return fmt.Errorf("seed examples: %w", err)
				}
			}

			srv := server.New(addr, st, cfg.DBPath, logger)
			srv.ConfigureImageOptions(server.ImageOptions{
				MaxUploadBytes:     cfg.Images.MaxUploadBytes,
				MultipartMaxMemory: cfg.Images.MultipartMaxMemory,
			})
			return srv.ListenAndServe(ctx)
		},
	}
}
