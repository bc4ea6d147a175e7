package redis

import (
	"context"
	"sort"
	"time"

	"github.com/juju/errors"
	backend "github.com/redis/go-redis/v9"

	"github.com/warriorguo/asl/store"
)

var (
	_ store.Store = &Store{}
)

const (
	defaultPrefix = "asl:"
)

/**
 * Store keeps values as plain redis strings under <prefix><store prefix>|<key>.
 * Each store prefix owns a set <prefix><store prefix>#index listing its keys,
 * List reads the set instead of scanning the keyspace.
 */
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithPrefix sets the namespace of every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires values ttl after their last Set, 0 keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to address and checks the connection.
func New(ctx context.Context, address, password string, db int, opts ...Option) (*Store, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Annotatef(err, "failed to ping redis %s", address)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client, the store owns it from then on.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(prefix, key string) string {
	return s.prefix + prefix + "|" + key
}

func (s *Store) indexKey(prefix string) string {
	return s.prefix + prefix + "#index"
}

func (s *Store) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(prefix, key)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "failed to get value for prefix=%s, key=%s", prefix, key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, prefix, key string, value []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(prefix, key), value, s.ttl)
	pipe.SAdd(ctx, s.indexKey(prefix), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Annotatef(err, "failed to set value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, prefix, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(prefix, key))
	pipe.SRem(ctx, s.indexKey(prefix), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Annotatef(err, "failed to remove value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

// List walks the index of prefix, pruning members whose value expired.
func (s *Store) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	keys, err := s.client.SMembers(ctx, s.indexKey(prefix)).Result()
	if err != nil {
		return errors.Annotatef(err, "failed to list keys for prefix=%s", prefix)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if s.ttl > 0 {
			exists, err := s.client.Exists(ctx, s.key(prefix, key)).Result()
			if err != nil {
				return errors.Annotatef(err, "failed to check key %s", key)
			}
			if exists == 0 {
				s.client.SRem(ctx, s.indexKey(prefix), key)
				continue
			}
		}
		if !iterator(key) {
			break
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
