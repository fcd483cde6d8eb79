package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	xdgAppName = "visitdesk"
	configFile = "config.json"

	DefaultTable = "visitors"
)

// Config holds preferences remembered between runs.
type Config struct {
	LastEmail     string `json:"last_email,omitempty"`
	SortAscending bool   `json:"sort_ascending"`
}

// Backend says where the hosted backend lives.
type Backend struct {
	URL     string
	AnonKey string
	Table   string
}

func (b Backend) Validate() error {
	var missing []string
	if b.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if b.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing backend configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Dir is the per-user directory for config and credentials.
func Dir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadEnv reads .env files into the environment (variables already set win)
// and returns the backend settings. A missing file is not an error.
func LoadEnv(files ...string) (Backend, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Backend{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv reads the backend settings, accepting the EXPO_PUBLIC_ names too.
func FromEnv() Backend {
	b := Backend{
		URL:     firstEnv("SUPABASE_URL", "EXPO_PUBLIC_SUPABASE_URL"),
		AnonKey: firstEnv("SUPABASE_ANON_KEY", "EXPO_PUBLIC_SUPABASE_ANON_KEY"),
		Table:   firstEnv("VISITORS_TABLE", "EXPO_PUBLIC_VISITORS_TABLE"),
	}
	if b.Table == "" {
		b.Table = DefaultTable
	}
	return b
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil // Default
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
