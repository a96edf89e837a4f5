// Package reconciler parses reconciler command flags and launches the
// standalone reconciliation worker.
package reconciler

import (
	"context"
	"errors"
	"flag"

	reliefcmd "github.com/reliefnet/reliefnet/internal/cmd/relief"
	entrypoint "github.com/reliefnet/reliefnet/internal/platform/cmd"
	reliefapp "github.com/reliefnet/reliefnet/internal/services/relief/app"
)

// Config holds reconciler command configuration.
type Config struct {
	HealthPort int `env:"RECONCILER_PORT" envDefault:"8096"`
	reliefcmd.LedgerSettings
	reliefcmd.ReconcileSettings
}

// Validate checks both embedded setting groups.
func (c Config) Validate() error {
	return errors.Join(c.LedgerSettings.Validate(), c.ReconcileSettings.Validate())
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.HealthPort, "port", cfg.HealthPort, "The reconciler health gRPC server port")
	reliefcmd.BindLedgerFlags(fs, &cfg.LedgerSettings)
	reliefcmd.BindReconcileFlags(fs, &cfg.ReconcileSettings)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := entrypoint.ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the reconciler runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReconciler, func(ctx context.Context) error {
		return reliefapp.RunReconciler(ctx, reliefapp.ReconcilerConfig{
			HealthPort: cfg.HealthPort,
			Ledger:     cfg.Ledger(),
			Oracle:     cfg.Oracle(),
			Reconcile:  cfg.Reconcile(),
		})
	})
}
