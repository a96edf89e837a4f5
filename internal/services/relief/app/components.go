// Package app wires the relief services into runnable processes.
package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reliefnet/reliefnet/internal/services/relief/approval"
	"github.com/reliefnet/reliefnet/internal/services/relief/intake"
	"github.com/reliefnet/reliefnet/internal/services/relief/issuer"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle/fixture"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle/httporacle"
	"github.com/reliefnet/reliefnet/internal/services/relief/reconcile"
	"github.com/reliefnet/reliefnet/internal/services/relief/registry"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage/sqlite"
)

const defaultDBPath = "data/relief.db"

// LedgerConfig selects the ledger database and the policies every relief
// component shares.
type LedgerConfig struct {
	DBPath           string
	OverageTolerance decimal.Decimal
	RedemptionWindow time.Duration
}

// OracleConfig selects the chain oracle. OracleURL wins over FixturePath.
type OracleConfig struct {
	OracleURL   string
	FixturePath string
}

// ReconcileConfig mirrors the reconciliation engine tunables.
type ReconcileConfig struct {
	FinalityDepth     int64
	AmountTolerance   decimal.Decimal
	MaxOracleAttempts int
	MaxNotFoundPolls  int
	RetryBase         time.Duration
	RetryMax          time.Duration
	PollInterval      time.Duration
	PendingTimeout    time.Duration
	BatchSize         int
}

// components holds one process's wired relief services.
type components struct {
	store     *sqlite.Store
	registry  *registry.Registry
	approvals *approval.Workflow
	intake    *intake.Service
	issuer    *issuer.Issuer
	engine    *reconcile.Engine
}

func openComponents(ledger LedgerConfig, oracleCfg OracleConfig, reconcileCfg ReconcileConfig) (*components, error) {
	chain, err := openOracle(oracleCfg)
	if err != nil {
		return nil, err
	}

	dbPath := strings.TrimSpace(ledger.DBPath)
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create relief storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open relief sqlite store: %w", err)
	}

	reg := registry.New(store, registry.Config{OverageTolerance: ledger.OverageTolerance})
	approvals := approval.New(store, approval.Config{})
	donations := intake.New(store, reg, intake.Config{})
	packages := issuer.New(store, reg, approvals, issuer.Config{RedemptionWindow: ledger.RedemptionWindow})
	engine := reconcile.New(store, reg, chain, packages, reconcile.Config{
		FinalityDepth:     reconcileCfg.FinalityDepth,
		AmountTolerance:   reconcileCfg.AmountTolerance,
		MaxOracleAttempts: reconcileCfg.MaxOracleAttempts,
		MaxNotFoundPolls:  reconcileCfg.MaxNotFoundPolls,
		RetryBase:         reconcileCfg.RetryBase,
		RetryMax:          reconcileCfg.RetryMax,
		PollInterval:      reconcileCfg.PollInterval,
		PendingTimeout:    reconcileCfg.PendingTimeout,
		BatchSize:         reconcileCfg.BatchSize,
	})

	return &components{
		store:     store,
		registry:  reg,
		approvals: approvals,
		intake:    donations,
		issuer:    packages,
		engine:    engine,
	}, nil
}

func (c *components) close() {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Close(); err != nil {
		log.Printf("close relief sqlite store: %v", err)
	}
}

func openOracle(cfg OracleConfig) (oracle.Oracle, error) {
	if url := strings.TrimSpace(cfg.OracleURL); url != "" {
		client, err := httporacle.New(url, nil)
		if err != nil {
			return nil, fmt.Errorf("init chain oracle client: %w", err)
		}
		return client, nil
	}
	if path := strings.TrimSpace(cfg.FixturePath); path != "" {
		chain, err := fixture.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load chain oracle fixture: %w", err)
		}
		log.Printf("chain oracle served from fixture %s", path)
		return chain, nil
	}
	return nil, errors.New("chain oracle url or fixture path is required")
}
