package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gate-labs/qualgate/core"
)

// Load reads a YAML configuration file, merges it over the defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes over the defaults. Unknown
// fields are rejected so typos surface as integration errors instead of
// silently ignored settings.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var loaded Config
	if err := dec.Decode(&loaded); err != nil {
		return nil, core.NewError(core.CodeIntegration, "config: malformed YAML", true, err)
	}

	merge(cfg, &loaded)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays loaded values onto the defaults. Maps merge per key;
// scalars replace when set.
func merge(base, loaded *Config) {
	if loaded.Concurrency > 0 {
		base.Concurrency = loaded.Concurrency
	}
	for dim, scopes := range loaded.Dimensions {
		base.Dimensions[dim] = scopes
	}
	for tool, settings := range loaded.Tools {
		base.Tools[tool] = settings
	}
	for mode, preset := range loaded.Modes {
		base.Modes[mode] = preset
	}
	for sc, globs := range loaded.Scopes {
		base.Scopes[sc] = globs
	}
	for tool, alts := range loaded.Substitutions {
		base.Substitutions[tool] = alts
	}
}
