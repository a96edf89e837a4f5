package reconcile

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultFinalityDepth     = 12
	defaultMaxOracleAttempts = 5
	defaultMaxNotFoundPolls  = 10
	defaultRetryBase         = 30 * time.Second
	defaultRetryMax          = 30 * time.Minute
	defaultPollInterval      = 15 * time.Second
	defaultBatchSize         = 50
	defaultReadTries         = 3
	defaultReadRetryDelay    = 250 * time.Millisecond
	defaultConflictRetries   = 3
)

// Config controls reconciliation behavior.
type Config struct {
	// FinalityDepth is the confirmation count a transfer needs before its
	// donation is confirmed.
	FinalityDepth int64
	// AmountTolerance bounds |chain amount - pledged amount| for a match.
	AmountTolerance decimal.Decimal
	// MaxOracleAttempts is how many consecutive passes may fail to read a
	// transfer before the donation fails with OracleUnavailable.
	MaxOracleAttempts int
	// MaxNotFoundPolls is how many passes may see no transfer before the
	// donation fails with NotFound.
	MaxNotFoundPolls int
	// RetryBase and RetryMax shape the exponential delay between passes
	// after unavailable reads.
	RetryBase time.Duration
	RetryMax  time.Duration
	// PollInterval is the pass cadence and the delay before re-checking a
	// transfer that is not final yet.
	PollInterval time.Duration
	// PendingTimeout fails chain-backed donations still pending this long
	// after submission. Zero disables the timeout.
	PendingTimeout time.Duration
	BatchSize      int
	// ReadTries and ReadRetryDelay bound immediate retries of one oracle
	// read inside a pass.
	ReadTries       uint
	ReadRetryDelay  time.Duration
	ConflictRetries int
	Clock           func() time.Time
	Logf            func(string, ...any)
}

func (c Config) normalized() Config {
	if c.FinalityDepth <= 0 {
		c.FinalityDepth = defaultFinalityDepth
	}
	if c.AmountTolerance.IsNegative() {
		c.AmountTolerance = decimal.Zero
	}
	if c.MaxOracleAttempts <= 0 {
		c.MaxOracleAttempts = defaultMaxOracleAttempts
	}
	if c.MaxNotFoundPolls <= 0 {
		c.MaxNotFoundPolls = defaultMaxNotFoundPolls
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.RetryMax < c.RetryBase {
		c.RetryMax = defaultRetryMax
		if c.RetryMax < c.RetryBase {
			c.RetryMax = c.RetryBase
		}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PendingTimeout < 0 {
		c.PendingTimeout = 0
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ReadTries == 0 {
		c.ReadTries = defaultReadTries
	}
	if c.ReadRetryDelay <= 0 {
		c.ReadRetryDelay = defaultReadRetryDelay
	}
	if c.ConflictRetries <= 0 {
		c.ConflictRetries = defaultConflictRetries
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	return c
}
