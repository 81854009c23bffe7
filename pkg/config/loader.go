// Package config fills env-tagged structs from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses the process environment into cfg, a pointer to a struct with
// `env` and `envDefault` tags. Nested structs are walked, so shared blocks
// such as database.PostgresConfig can be embedded as plain fields.
func Load(cfg any) error {
	return LoadFrom(cfg, nil)
}

// LoadFrom is Load over an explicit environment. A nil map means the
// process environment.
func LoadFrom(cfg any, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
