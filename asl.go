package asl

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/parser"
	"github.com/warriorguo/asl/runtime"
	"github.com/warriorguo/asl/store"
	"github.com/warriorguo/asl/store/mem"
	"github.com/warriorguo/asl/store/postgres"
	"github.com/warriorguo/asl/store/redis"
	"github.com/warriorguo/asl/types"
)

const (
	connectTimeout = 10 * time.Second
)

// NewHost creates a host running def with the given options
func NewHost(def *types.StateMachine, resolver types.HandlerResolver, opts ...types.HostOption) (types.Host, error) {
	options := types.NewHostOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.TokenSink == nil {
		s, err := newStore(options)
		if err != nil {
			return nil, errors.Trace(err)
		}
		options.TokenSink = store.NewTokenSink(s)
		options.OwnTokenSink = true
	}

	h, err := runtime.NewHost(def, resolver, options)
	if err != nil {
		if options.OwnTokenSink {
			options.TokenSink.(*store.TokenSink).Close()
		}
		return nil, errors.Trace(err)
	}
	return h, nil
}

// NewHostFromJSON parses an ASL JSON document and creates its host
func NewHostFromJSON(b []byte, resolver types.HandlerResolver, opts ...types.HostOption) (types.Host, error) {
	def, err := parser.Parse(b)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewHost(def, resolver, opts...)
}

// NewHostFromYAML parses an ASL YAML document and creates its host
func NewHostFromYAML(b []byte, resolver types.HandlerResolver, opts ...types.HostOption) (types.Host, error) {
	def, err := parser.ParseYAML(b)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewHost(def, resolver, opts...)
}

// newStore picks the token store: MemStore forces memory, then PostgresConfig, then RedisConfig.
func newStore(options *types.HostOptions) (store.Store, error) {
	switch {
	case options.MemStore:
		return mem.NewMemStore(), nil

	case options.PostgresConfig != nil:
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
			Table:    options.PostgresConfig.Table,
		}
		s, err := postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
		return s, nil

	case options.RedisConfig != nil:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		redisOpts := make([]redis.Option, 0, 1)
		if options.RedisConfig.Prefix != "" {
			redisOpts = append(redisOpts, redis.WithPrefix(options.RedisConfig.Prefix))
		}
		s, err := redis.New(ctx, options.RedisConfig.Addr, options.RedisConfig.Password,
			options.RedisConfig.DB, redisOpts...)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create Redis store")
		}
		return s, nil
	}
	return mem.NewMemStore(), nil
}
