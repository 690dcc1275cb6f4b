package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.uber.org/multierr"

	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const logPrefix = "bootstrap:loader"

// EnvSeedFile names the environment variable consulted after explicit paths.
const EnvSeedFile = "DA_SEED_FILE"

// LoadSeedConfig loads a seed file. It tries paths in order: first any paths passed in, then
// DA_SEED_FILE, then config/seed.json and seed.json. An explicit path that exists but cannot
// be parsed is an error; other candidates that fail to parse are skipped with a warning.
// When nothing is found the empty default config is returned.
func LoadSeedConfig(paths ...string) (*SeedConfig, error) {
	type candidate struct {
		path     string
		explicit bool
	}
	all := make([]candidate, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, candidate{p, true})
		}
	}
	if envPath := os.Getenv(EnvSeedFile); envPath != "" {
		all = append(all, candidate{envPath, false})
	}
	all = append(all, candidate{"config/seed.json", false}, candidate{"seed.json", false})

	for _, c := range all {
		data, err := os.ReadFile(c.path)
		if err != nil {
			if c.explicit && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s - failed to read seed file %s: %w", logPrefix, c.path, err)
			}
			continue
		}

		var cfg SeedConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			if c.explicit {
				return nil, fmt.Errorf("%s - failed to parse seed file %s: %w", logPrefix, c.path, err)
			}
			slog.Warn(fmt.Sprintf("%s - Failed to parse seed file %s: %v", logPrefix, c.path, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded seed config from %s", logPrefix, c.path))
		return &cfg, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default seed config", logPrefix))
	return DefaultSeedConfig(), nil
}

// DefaultSeedConfig returns the fallback config, which seeds nothing.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Name:        "da-default",
		Version:     "1.0.0",
		Description: "Empty seed; products are created by a seed file",
		Products:    []SeedProduct{},
	}
}

// Validate checks product names, versions and whitelist coordinates and reports every problem found.
func Validate(cfg *SeedConfig) error {
	var errs error
	seen := make(map[string]bool, len(cfg.Products))
	for i, p := range cfg.Products {
		if p.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("products[%d]: name is required", i))
			continue
		}
		if seen[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("products[%d]: duplicate product %q", i, p.Name))
		}
		seen[p.Name] = true

		for _, v := range p.Versions {
			if !semver.ValidateVersion(v.Version) {
				errs = multierr.Append(errs, fmt.Errorf("product %q: invalid version %q", p.Name, v.Version))
			}
		}
		for _, coord := range p.Whitelist {
			if _, err := semver.ParseGAV(coord); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("product %q: %w", p.Name, err))
			}
		}
	}
	if errs != nil {
		return fmt.Errorf("%s - invalid seed config %q: %w", logPrefix, cfg.Name, errs)
	}
	return nil
}
