package types

import (
	"time"

	"github.com/mcuadros/go-defaults"
)

/**
 * Impositions override parts of a definition for testing and debugging.
 * They apply to the whole execution tree, Parallel branches and Map
 * iterations included.
 */
type Impositions struct {
	// WaitOverride replaces the duration of every Wait state. Retry delays are not affected.
	WaitOverride *time.Duration
	// TaskTimeout replaces the timeout of every Task state.
	TaskTimeout *time.Duration
	// StepSelector remaps the target of each transition, identity when nil.
	StepSelector func(next string) string

	DisableRetry bool
	DisableCatch bool
	/**
	 * default: true, when false a .waitForTaskToken task continues
	 * right after its handler returns instead of waiting on the token sink.
	 */
	HonorTaskTokens bool
}

type Imposition func(*Impositions)

func NewImpositions(impositions ...Imposition) *Impositions {
	imp := &Impositions{HonorTaskTokens: true}
	for _, apply := range impositions {
		apply(imp)
	}
	return imp
}

func (i *Impositions) SelectStep(next string) string {
	if i == nil || i.StepSelector == nil {
		return next
	}
	return i.StepSelector(next)
}

func WithWaitOverride(d time.Duration) Imposition {
	return func(imp *Impositions) {
		imp.WaitOverride = &d
	}
}

func WithTaskTimeout(d time.Duration) Imposition {
	return func(imp *Impositions) {
		imp.TaskTimeout = &d
	}
}

func WithStepSelector(selector func(next string) string) Imposition {
	return func(imp *Impositions) {
		imp.StepSelector = selector
	}
}

func WithoutRetry() Imposition {
	return func(imp *Impositions) {
		imp.DisableRetry = true
	}
}

func WithoutCatch() Imposition {
	return func(imp *Impositions) {
		imp.DisableCatch = true
	}
}

func IgnoreTaskTokens() Imposition {
	return func(imp *Impositions) {
		imp.HonorTaskTokens = false
	}
}

func NewHostOptions() *HostOptions {
	opts := &HostOptions{}
	defaults.SetDefaults(opts)
	opts.Impositions = NewImpositions()
	return opts
}

type HostOptions struct {
	Impositions *Impositions

	/**
	 * default: 60s, timeout of a Task state declaring neither
	 * TimeoutSeconds nor TimeoutSecondsPath.
	 */
	DefaultTaskTimeout time.Duration `default:"60s"`
	/**
	 * default: 100ms, interval between two reads of the token sink
	 * while an execution waits for a task token.
	 */
	TokenPollInterval time.Duration `default:"100ms"`

	// TokenSink takes precedence over the store configurations below.
	TokenSink TokenSink
	// OwnTokenSink makes Close release the token sink.
	OwnTokenSink bool `default:"false"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 * It wins over PostgresConfig and RedisConfig.
	 */
	MemStore bool `default:"false"`
	// If both RedisConfig and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig
	RedisConfig    *RedisConfig

	Observers []ExecutionObserver
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
	Table    string // default asl_token_store
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type HostOption func(*HostOptions)

func WithImpositions(impositions ...Imposition) HostOption {
	return func(opts *HostOptions) {
		for _, apply := range impositions {
			apply(opts.Impositions)
		}
	}
}

func WithDefaultTaskTimeout(d time.Duration) HostOption {
	return func(opts *HostOptions) {
		opts.DefaultTaskTimeout = d
	}
}

func WithTokenPollInterval(d time.Duration) HostOption {
	return func(opts *HostOptions) {
		opts.TokenPollInterval = d
	}
}

func WithTokenSink(sink TokenSink) HostOption {
	return func(opts *HostOptions) {
		opts.TokenSink = sink
	}
}

func EnableMemStore() HostOption {
	return func(opts *HostOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig keeps task token statuses in PostgreSQL
func WithPostgresConfig(config *PostgresConfig) HostOption {
	return func(opts *HostOptions) {
		opts.PostgresConfig = config
	}
}

// WithRedisConfig keeps task token statuses in Redis
func WithRedisConfig(config *RedisConfig) HostOption {
	return func(opts *HostOptions) {
		opts.RedisConfig = config
	}
}

func WithObserver(observer ExecutionObserver) HostOption {
	return func(opts *HostOptions) {
		opts.Observers = append(opts.Observers, observer)
	}
}
