package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PlayerConfig configures the terminal player.
type PlayerConfig struct {
	APIURL         string        `koanf:"api_url"`         // e.g. "http://localhost:8000"
	Volume         float64       `koanf:"volume"`          // initial volume, 0.0-1.0
	SearchDebounce time.Duration `koanf:"search_debounce"` // quiet period before a search is sent
	LogFile        string        `koanf:"log_file"`
	LogLevel       string        `koanf:"log_level"`
	Token          string        `koanf:"token"` // optional bearer token
}

// DefaultPlayerConfig returns the values used when no file sets them.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		APIURL:         "http://localhost:8000",
		Volume:         1,
		SearchDebounce: 300 * time.Millisecond,
		LogFile:        filepath.Join(xdg.StateHome, "melodix", "player.log"),
		LogLevel:       "info",
	}
}

// LoadPlayer reads the player configuration. Files are applied in order, the
// last one wins: $XDG_CONFIG_HOME/melodix/player.toml then ./player.toml.
func LoadPlayer() (*PlayerConfig, error) {
	return LoadPlayerFrom(playerConfigPaths()...)
}

// LoadPlayerFrom reads the given files, skipping the ones that do not exist.
func LoadPlayerFrom(paths ...string) (*PlayerConfig, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := DefaultPlayerConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = 300 * time.Millisecond
	}

	return &cfg, nil
}

func playerConfigPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, "melodix", "player.toml"),
		"player.toml",
	}
}
