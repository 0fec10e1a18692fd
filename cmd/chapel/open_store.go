package main

import (
	"fmt"

	"chapel/internal/boltstore"
	"chapel/internal/config"
	"chapel/internal/store"
)

// openStore opens the configured backend directly, bypassing the API.
func openStore(cfg *config.Config) (store.PostStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}

	switch cfg.StorageBackend {
	case config.BackendBolt:
		st, err := boltstore.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendSQLite, "":
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
