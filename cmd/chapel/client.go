package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"time"

	"chapel/internal/api"
	"chapel/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
	serverCheckTimeout = 500 * time.Millisecond
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := api.NewClient(cfg.APIURL)
	return fn(client)
}

// ensureServer starts a short-lived local server when none answers at the
// configured URL, then checks that the server can reach its post store.
// The returned cleanup stops a server started here.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), serverCheckTimeout)
	defer cancel()

	if err := client.Ping(ctx); err == nil {
		if err := checkServerStore(client, cfg, false); err != nil {
			return nil, err
		}
		return nil, nil
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}
	cleanup := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	if err := waitForServer(client, serverStartTimeout); err != nil {
		cleanup()
		return nil, err
	}
	if err := checkServerStore(client, cfg, true); err != nil {
		cleanup()
		return nil, err
	}
	return cleanup, nil
}

// checkServerStore asks the server which post store it serves. An unreachable
// store is an error; a backend other than the configured one is logged.
func checkServerStore(client *api.Client, cfg *config.Config, started bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), serverCheckTimeout)
	defer cancel()

	info, err := client.GetInfo(ctx)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "unavailable" {
			return fmt.Errorf("server at %s cannot open its post store: %w", cfg.APIURL, err)
		}
		// Servers without /v1/info still answer post routes.
		slog.Debug("store check failed", "api_url", cfg.APIURL, "error", err)
		return nil
	}

	fields := []any{
		"api_url", cfg.APIURL,
		"backend", info.Backend,
		"schema_version", info.SchemaVersion,
		"posts", info.TotalPosts,
	}
	if started {
		slog.Debug("started local server", append(fields, "db_path", info.DBPath)...)
	}
	if cfg.StorageBackend != "" && info.Backend != "" && info.Backend != cfg.StorageBackend {
		slog.Warn("server uses a different storage backend than configured", append(fields, "configured_backend", cfg.StorageBackend)...)
	}
	return nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"CHAPEL_DB="+cfg.DBPath,
		"CHAPEL_API_URL="+cfg.APIURL,
		"CHAPEL_STORAGE_BACKEND="+cfg.StorageBackend,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Port taken by something that is not a chapel server.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
