package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewHostOptions_Defaults(t *testing.T) {
	opts := NewHostOptions()

	assert.Equal(t, 60*time.Second, opts.DefaultTaskTimeout)
	assert.Equal(t, 100*time.Millisecond, opts.TokenPollInterval)
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.TokenSink)

	assert.NotNil(t, opts.Impositions)
	assert.True(t, opts.Impositions.HonorTaskTokens)
	assert.False(t, opts.Impositions.DisableRetry)
	assert.False(t, opts.Impositions.DisableCatch)
	assert.Nil(t, opts.Impositions.WaitOverride)
	assert.Equal(t, "Next", opts.Impositions.SelectStep("Next"))
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewHostOptions()
	WithPostgresConfig(config)(opts)
	WithRedisConfig(&RedisConfig{Addr: "localhost:6379", Prefix: "asl:"})(opts)
	EnableMemStore()(opts)

	assert.Equal(t, config, opts.PostgresConfig)
	assert.Equal(t, "localhost:6379", opts.RedisConfig.Addr)
	assert.True(t, opts.MemStore)
}

func TestWithImpositions(t *testing.T) {
	opts := NewHostOptions()
	WithImpositions(
		WithWaitOverride(0),
		WithTaskTimeout(time.Second),
		WithoutRetry(),
		WithoutCatch(),
		IgnoreTaskTokens(),
		WithStepSelector(func(next string) string { return "Forced" }),
	)(opts)
	WithDefaultTaskTimeout(5 * time.Second)(opts)
	WithTokenPollInterval(time.Millisecond)(opts)

	imp := opts.Impositions
	assert.Equal(t, time.Duration(0), *imp.WaitOverride)
	assert.Equal(t, time.Second, *imp.TaskTimeout)
	assert.True(t, imp.DisableRetry)
	assert.True(t, imp.DisableCatch)
	assert.False(t, imp.HonorTaskTokens)
	assert.Equal(t, "Forced", imp.SelectStep("Next"))
	assert.Equal(t, 5*time.Second, opts.DefaultTaskTimeout)
	assert.Equal(t, time.Millisecond, opts.TokenPollInterval)
}

func TestSelectStep_NilImpositions(t *testing.T) {
	var imp *Impositions
	assert.Equal(t, "A", imp.SelectStep("A"))
}

func TestNewImpositions(t *testing.T) {
	imp := NewImpositions()
	assert.True(t, imp.HonorTaskTokens)
	assert.Nil(t, imp.WaitOverride)
	assert.Nil(t, imp.TaskTimeout)

	imp = NewImpositions(WithWaitOverride(time.Second), WithTaskTimeout(2*time.Second), WithoutRetry(), IgnoreTaskTokens())
	assert.Equal(t, time.Second, *imp.WaitOverride)
	assert.Equal(t, 2*time.Second, *imp.TaskTimeout)
	assert.True(t, imp.DisableRetry)
	assert.False(t, imp.DisableCatch)
	assert.False(t, imp.HonorTaskTokens)
}
