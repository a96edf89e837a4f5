// Package config loads relief process settings from RELIEF_* variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every env tag, so `env:"DB_PATH"` reads RELIEF_DB_PATH.
const EnvPrefix = "RELIEF_"

// Validator is implemented by settings that check their own invariants,
// such as a non-negative amount tolerance or a positive batch size.
type Validator interface {
	Validate() error
}

// ParseEnv loads configuration from RELIEF_* environment variables. An
// empty variable falls back to its envDefault.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate runs target's Validate method when it has one. Call it after
// flags are applied so overrides are checked too.
func Validate(target any) error {
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
