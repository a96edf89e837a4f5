// Package relief parses relief command flags and launches the API server.
package relief

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	entrypoint "github.com/reliefnet/reliefnet/internal/platform/cmd"
	reliefapp "github.com/reliefnet/reliefnet/internal/services/relief/app"
)

// LedgerSettings selects the ledger database, the chain oracle and the
// funding policies. Shared with the reconciler command.
type LedgerSettings struct {
	DBPath           string          `env:"DB_PATH" envDefault:"data/relief.db"`
	OracleURL        string          `env:"ORACLE_URL"`
	OracleFixture    string          `env:"ORACLE_FIXTURE"`
	OverageTolerance decimal.Decimal `env:"OVERAGE_TOLERANCE" envDefault:"0"`
	RedemptionWindow time.Duration   `env:"REDEMPTION_WINDOW" envDefault:"72h"`
}

// ReconcileSettings holds reconciliation engine tunables.
type ReconcileSettings struct {
	FinalityDepth     int64           `env:"FINALITY_DEPTH" envDefault:"12"`
	AmountTolerance   decimal.Decimal `env:"AMOUNT_TOLERANCE" envDefault:"0"`
	MaxOracleAttempts int             `env:"MAX_ORACLE_ATTEMPTS" envDefault:"5"`
	MaxNotFoundPolls  int             `env:"MAX_NOT_FOUND_POLLS" envDefault:"10"`
	RetryBase         time.Duration   `env:"RETRY_BASE" envDefault:"30s"`
	RetryMax          time.Duration   `env:"RETRY_MAX" envDefault:"30m"`
	PollInterval      time.Duration   `env:"POLL_INTERVAL" envDefault:"15s"`
	PendingTimeout    time.Duration   `env:"PENDING_TIMEOUT" envDefault:"72h"`
	BatchSize         int             `env:"BATCH_SIZE" envDefault:"50"`
}

// Config holds relief command configuration.
type Config struct {
	Port            int    `env:"HTTP_PORT" envDefault:"8095"`
	EmbedReconciler bool   `env:"EMBED_RECONCILER" envDefault:"true"`
	JWTSecret       string `env:"JWT_SECRET"`
	JWTIssuer       string `env:"JWT_ISSUER"`
	LedgerSettings
	ReconcileSettings
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The relief HTTP API port")
	fs.BoolVar(&cfg.EmbedReconciler, "embed-reconciler", cfg.EmbedReconciler, "Run reconciliation passes inside the API process")
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", cfg.JWTIssuer, "Expected bearer token issuer")
	BindLedgerFlags(fs, &cfg.LedgerSettings)
	BindReconcileFlags(fs, &cfg.ReconcileSettings)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := entrypoint.ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindLedgerFlags registers flag overrides for ledger settings.
func BindLedgerFlags(fs *flag.FlagSet, s *LedgerSettings) {
	fs.StringVar(&s.DBPath, "db-path", s.DBPath, "The relief SQLite database path")
	fs.StringVar(&s.OracleURL, "oracle-url", s.OracleURL, "Chain oracle base URL")
	fs.StringVar(&s.OracleFixture, "oracle-fixture", s.OracleFixture, "Chain oracle YAML fixture used when no URL is set")
	fs.TextVar(&s.OverageTolerance, "overage-tolerance", s.OverageTolerance, "How far confirmed funding may exceed a campaign target")
	fs.DurationVar(&s.RedemptionWindow, "redemption-window", s.RedemptionWindow, "How long an issued package may await receipt")
}

// BindReconcileFlags registers flag overrides for reconciliation settings.
func BindReconcileFlags(fs *flag.FlagSet, s *ReconcileSettings) {
	fs.Int64Var(&s.FinalityDepth, "finality-depth", s.FinalityDepth, "Confirmations required before a donation is confirmed")
	fs.TextVar(&s.AmountTolerance, "amount-tolerance", s.AmountTolerance, "Allowed difference between pledged and transferred amounts")
	fs.IntVar(&s.MaxOracleAttempts, "max-oracle-attempts", s.MaxOracleAttempts, "Failed oracle reads before a donation fails")
	fs.IntVar(&s.MaxNotFoundPolls, "max-not-found-polls", s.MaxNotFoundPolls, "Passes without a transfer before a donation fails")
	fs.DurationVar(&s.RetryBase, "retry-base", s.RetryBase, "Base delay after an unavailable oracle read")
	fs.DurationVar(&s.RetryMax, "retry-max", s.RetryMax, "Maximum delay after unavailable oracle reads")
	fs.DurationVar(&s.PollInterval, "poll-interval", s.PollInterval, "Reconciliation pass interval")
	fs.DurationVar(&s.PendingTimeout, "pending-timeout", s.PendingTimeout, "Age at which a chain donation still pending fails (0 disables)")
	fs.IntVar(&s.BatchSize, "batch-size", s.BatchSize, "Donations checked per pass")
}

// Validate rejects ledger settings the service cannot run with.
func (s LedgerSettings) Validate() error {
	switch {
	case strings.TrimSpace(s.DBPath) == "":
		return errors.New("db path is required")
	case s.OverageTolerance.IsNegative():
		return errors.New("overage tolerance must not be negative")
	case s.RedemptionWindow <= 0:
		return errors.New("redemption window must be positive")
	}
	return nil
}

// Validate rejects reconciliation settings the engine cannot run with.
func (s ReconcileSettings) Validate() error {
	switch {
	case s.FinalityDepth < 0:
		return errors.New("finality depth must not be negative")
	case s.AmountTolerance.IsNegative():
		return errors.New("amount tolerance must not be negative")
	case s.PollInterval <= 0:
		return errors.New("poll interval must be positive")
	case s.BatchSize <= 0:
		return errors.New("batch size must be positive")
	case s.PendingTimeout < 0:
		return errors.New("pending timeout must not be negative")
	case s.RetryMax < s.RetryBase:
		return fmt.Errorf("retry max %s is below retry base %s", s.RetryMax, s.RetryBase)
	}
	return nil
}

// Validate checks both embedded setting groups.
func (c Config) Validate() error {
	return errors.Join(c.LedgerSettings.Validate(), c.ReconcileSettings.Validate())
}

// Ledger converts settings into the runtime ledger config.
func (s LedgerSettings) Ledger() reliefapp.LedgerConfig {
	return reliefapp.LedgerConfig{
		DBPath:           s.DBPath,
		OverageTolerance: s.OverageTolerance,
		RedemptionWindow: s.RedemptionWindow,
	}
}

// Oracle converts settings into the runtime oracle config.
func (s LedgerSettings) Oracle() reliefapp.OracleConfig {
	return reliefapp.OracleConfig{OracleURL: s.OracleURL, FixturePath: s.OracleFixture}
}

// Reconcile converts settings into the runtime reconcile config.
func (s ReconcileSettings) Reconcile() reliefapp.ReconcileConfig {
	return reliefapp.ReconcileConfig{
		FinalityDepth:     s.FinalityDepth,
		AmountTolerance:   s.AmountTolerance,
		MaxOracleAttempts: s.MaxOracleAttempts,
		MaxNotFoundPolls:  s.MaxNotFoundPolls,
		RetryBase:         s.RetryBase,
		RetryMax:          s.RetryMax,
		PollInterval:      s.PollInterval,
		PendingTimeout:    s.PendingTimeout,
		BatchSize:         s.BatchSize,
	}
}

// Run starts the relief API server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelief, func(ctx context.Context) error {
		return reliefapp.RunServer(ctx, reliefapp.ServerConfig{
			Port:            cfg.Port,
			Ledger:          cfg.Ledger(),
			Oracle:          cfg.Oracle(),
			Reconcile:       cfg.Reconcile(),
			EmbedReconciler: cfg.EmbedReconciler,
			JWTSecret:       cfg.JWTSecret,
			JWTIssuer:       cfg.JWTIssuer,
		})
	})
}
