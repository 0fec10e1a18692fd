package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:7480"
	DefaultDBFileName     = ".chapel.db"
	DefaultBoltFileName   = ".chapel.bolt"
	DefaultStorageBackend = BackendSQLite
	DefaultLogLevel       = "info"

	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"

	DefaultImageMaxUploadBytes  int64 = 16 * 1024 * 1024
	DefaultImageMultipartMemory int64 = 4 * 1024 * 1024

	configFileName           = ".chapel.toml"
	configDirEnvKey          = "CHAPEL_CONFIG_DIR"
	trustProjectConfigEnvKey = "CHAPEL_TRUST_PROJECT_CONFIG"
)

// ImageConfig bounds image uploads.
type ImageConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// SeedConfig controls the example posts inserted into an empty blog.
type SeedConfig struct {
	OnStart     bool `toml:"on_start"`
	FetchImages bool `toml:"fetch_images"`
}

// Config defines runtime configuration for chapel.
type Config struct {
	APIURL                   string      `toml:"api_url"`
	DBPath                   string      `toml:"db_path"`
	StorageBackend           string      `toml:"storage_backend"`
	LogLevel                 string      `toml:"log_level"`
	Images                   ImageConfig `toml:"images"`
	Seed                     SeedConfig  `toml:"seed"`
	TrustedProjectConfigPath string      `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		DBPath:         "",
		StorageBackend: DefaultStorageBackend,
		LogLevel:       DefaultLogLevel,
		Images: ImageConfig{
			MaxUploadBytes:     DefaultImageMaxUploadBytes,
			MultipartMaxMemory: DefaultImageMultipartMemory,
		},
		Seed: SeedConfig{
			OnStart:     true,
			FetchImages: false,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"storage_backend",
	"log_level",
	"images.max_upload_bytes",
	"images.multipart_max_memory",
	"seed.on_start",
	"seed.fetch_images",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	out := make([]string, len(allowedKeys))
	copy(out, allowedKeys)
	return out
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "storage_backend":
		return c.StorageBackend, nil
	case "log_level":
		return c.LogLevel, nil
	case "images.max_upload_bytes":
		return strconv.FormatInt(c.Images.MaxUploadBytes, 10), nil
	case "images.multipart_max_memory":
		return strconv.FormatInt(c.Images.MultipartMaxMemory, 10), nil
	case "seed.on_start":
		return strconv.FormatBool(c.Seed.OnStart), nil
	case "seed.fetch_images":
		return strconv.FormatBool(c.Seed.FetchImages), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv("CHAPEL_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("CHAPEL_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backend := os.Getenv("CHAPEL_STORAGE_BACKEND"); backend != "" {
		cfg.StorageBackend = backend
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if c.StorageBackend == "" {
		c.StorageBackend = DefaultStorageBackend
	}
	if !isValidBackend(c.StorageBackend) {
		return fmt.Errorf("storage_backend must be %s or %s, got %q", BackendSQLite, BackendBolt, c.StorageBackend)
	}

	if strings.TrimSpace(c.DBPath) == "" {
		if cwd, err := os.Getwd(); err == nil {
			name := DefaultDBFileName
			if c.StorageBackend == BackendBolt {
				name = DefaultBoltFileName
			}
			c.DBPath = filepath.Join(cwd, name)
		}
	}

	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Images.MaxUploadBytes <= 0 {
		c.Images.MaxUploadBytes = DefaultImageMaxUploadBytes
	}
	if c.Images.MultipartMaxMemory <= 0 {
		c.Images.MultipartMaxMemory = DefaultImageMultipartMemory
	}
	return nil
}

func isValidBackend(backend string) bool {
	return backend == BackendSQLite || backend == BackendBolt
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "images.max_upload_bytes", "images.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "seed.on_start", "seed.fetch_images":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "storage_backend":
		backend := strings.ToLower(value)
		if !isValidBackend(backend) {
			return nil, fmt.Errorf("storage_backend must be %s or %s", BackendSQLite, BackendBolt)
		}
		return backend, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
