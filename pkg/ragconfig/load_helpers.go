package ragconfig

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// LoadFromFlagOrDir loads the config from cfgPath if provided, otherwise
// searches for msgrag.yaml starting from dir (walking up parent
// directories). Environment overrides are applied on top in both cases.
func LoadFromFlagOrDir(cfgPath string, dir string) (*Config, error) {
	var cfg *Config
	var err error

	if strings.TrimSpace(cfgPath) != "" {
		cfg, err = Load(cfgPath)
	} else {
		cfg, err = LoadFromDir(dir)
	}
	if err != nil {
		return nil, err
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides endpoint settings from MSGRAG_* environment variables.
// A .env file in the working directory is honored when present.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load() // missing .env is fine

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}
	return nil
}
