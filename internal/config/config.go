// Package config loads flashdeck settings from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "FLASHDECK_"

// legacyDBEnv is honoured when FLASHDECK_DATABASE_PATH is not set.
const legacyDBEnv = "FLASHCARDS_DB"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Review   ReviewConfig   `koanf:"review"`
	Server   ServerConfig   `koanf:"server"`
	Import   ImportConfig   `koanf:"import"`
	Log      LogConfig      `koanf:"log"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ReviewConfig struct {
	Limit int `koanf:"limit" validate:"min=1,max=1000"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type ImportConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type LogConfig struct {
	Debug bool `koanf:"debug"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "flashcards.db"},
		Review:   ReviewConfig{Limit: 50},
		Server:   ServerConfig{Addr: "localhost:8080"},
		Import:   ImportConfig{ReposDir: "repos"},
	}
}

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by Load.
var FlagKeys = map[string]string{
	"db":        "database.path",
	"limit":     "review.limit",
	"addr":      "server.addr",
	"repos-dir": "import.repos_dir",
	"debug":     "log.debug",
}

// Load builds the configuration. configFile may be empty, in which case no
// file is read. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	def := Default()
	defaults := map[string]any{
		"database.path":    def.Database.Path,
		"review.limit":     def.Review.Limit,
		"server.addr":      def.Server.Addr,
		"import.repos_dir": def.Import.ReposDir,
		"log.debug":        def.Log.Debug,
	}
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("configuration file %s does not exist: %w", configFile, err)
			}
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	if path := os.Getenv(legacyDBEnv); path != "" {
		if err := k.Set("database.path", path); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", legacyDBEnv, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to read flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns FLASHDECK_DATABASE_PATH into database.path. The first
// underscore after the section separates it from the field name, so
// FLASHDECK_IMPORT_REPOS_DIR maps to import.repos_dir.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}
