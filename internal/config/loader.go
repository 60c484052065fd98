package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix = "CIVICRANK_"
	envConfig = "CIVICRANK_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CIVICRANK_CONFIG is set
//  3. env (prefix CIVICRANK_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(envConfig))
}

// LoadFile is Load with an explicit config file path; an empty path skips the file layer.
func LoadFile(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// CIVICRANK_DATA_DIR -> data_dir. Underscores are kept so keys match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields every command depends on and clamps soft limits.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.Congress <= 0:
		return fmt.Errorf("%w: congress must be positive", ErrInvalidConfig)
	case c.Session < 1 || c.Session > 2:
		return fmt.Errorf("%w: session must be 1 or 2", ErrInvalidConfig)
	}
	if c.FetchWorkers < 1 {
		c.FetchWorkers = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestDelayMS < 0 {
		c.RequestDelayMS = 0
	}
	if c.MaxLeaderboardLimit < 1 {
		c.MaxLeaderboardLimit = 1
	}
	return nil
}
