/*
Package config loads server configuration.

PURPOSE:
  Layered configuration: built-in defaults, then an optional TOML file,
  then environment variables. Flags in cmd/server/main.go win over all
  of these for the values they cover.

FILE FORMAT (TOML):
  [server]
  port = 8080
  allowed_origins = ["http://localhost:5173"]

  [database]
  path = "./data/harborlog.db"

ENVIRONMENT:
  HARBORLOG_PORT        overrides server.port
  HARBORLOG_DB          overrides database.path
  HARBORLOG_ORIGINS     comma-separated, overrides server.allowed_origins
  (a .env file is honored when present; see cmd/server/main.go)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
}

type Server struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Database struct {
	Path string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Port: 8080,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://localhost:8080",
			},
		},
		Database: Database{Path: "harborlog.db"},
	}
}

// Load returns the defaults overlaid with the TOML file (when path is
// non-empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if v := os.Getenv("HARBORLOG_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HARBORLOG_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("HARBORLOG_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HARBORLOG_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.AllowedOrigins = origins
	}

	return cfg, nil
}
