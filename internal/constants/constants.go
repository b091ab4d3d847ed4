package constants

import "time"

// Rating model.
const (
	StartingElo = 1500.0
	EloK        = 32.0
)

// Feature extraction. Samples below MinSampleSize carry no signal and the
// corresponding feature reads as neutral 0.0. A streak older than
// StreakStaleAfter is assumed to have lost its momentum.
const (
	MinSampleSize     = 3
	StreakStaleAfter  = 24 * time.Hour
	OpponentScanLimit = 100
)

// Stake sizing. The effective balance cap keeps a large bankroll from
// pinning every wager at the hard ceiling.
const (
	MaxBetCap           int64 = 300_000
	GimmickBetCap       int64 = 20_000
	EffectiveBalanceCap int64 = 5_000_000
	BaseBetFraction           = 0.05
	ConfidenceFloor           = 0.15
	ConfidenceCeil            = 0.85
)

// Offline trainer.
const (
	TrainWarmupMatches = 50
	RetrainEvery       = 100
	FitMaxIterations   = 2000
	FitLearningRate    = 0.1
	FitTolerance       = 1e-7
)

const (
	HeartbeatInterval    = 30 * time.Second
	HeartbeatStaleAfter  = 2 * time.Minute
	WatchdogPollInterval = 1 * time.Minute
	RestartCooldown      = 5 * time.Minute
)

const (
	SaltyRequestTimeout = 10 * time.Second
	SaltyRetryAttempts  = 3
	SaltyRetryBackoff   = 2 * time.Second
	WebhookTimeout      = 5 * time.Second
)

// Stats API. The backoff is long because the upstream recomputes its own
// state between matches and transient 5xx responses resolve on their own.
const (
	StatsRequestTimeout = 10 * time.Second
	StatsRetryAttempts  = 3
	StatsRetryBackoff   = 5 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	RequestTimeout    = 30 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

const (
	ListPageSizeDefault = 100
	ListPageSizeMax     = 1000
	PerformanceWindow   = 100
)
