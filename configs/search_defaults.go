package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/updateme/engine/internal/core/domain/search"
)

// SearchDefaults overlays the built-in per-backend search options.
type SearchDefaults struct {
	Tavily  search.Config `yaml:"tavily"`
	SerpAPI search.Config `yaml:"serpapi"`
}

// For returns the overlay for backend b.
func (d *SearchDefaults) For(b search.Backend) search.Config {
	if d == nil {
		return search.Config{}
	}
	switch b {
	case search.BackendTavily:
		return d.Tavily
	case search.BackendSerpAPI:
		return d.SerpAPI
	default:
		return search.Config{}
	}
}

// LoadSearchDefaults reads a YAML defaults file. Environment references such
// as ${VAR} are expanded before parsing. An empty path yields no overrides.
func LoadSearchDefaults(path string) (*SearchDefaults, error) {
	if path == "" {
		return &SearchDefaults{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search defaults: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	out := &SearchDefaults{}
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return nil, fmt.Errorf("parse search defaults: %w", err)
	}
	return out, nil
}
