package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/store/redis"
	"github.com/warriorguo/asl/store/storetest"
)

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func TestRedisStore_Contract(t *testing.T) {
	mr := newMiniredis(t)

	s := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	defer s.Close()

	storetest.RunContract(t, s)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := newMiniredis(t)

	s, err := redis.New(context.Background(), mr.Addr(), "", 0, redis.WithPrefix("test:"))
	assert.Nil(t, err)
	defer s.Close()

	assert.Nil(t, s.Set(context.Background(), "/token/", "abc", []byte("v")))
	assert.True(t, mr.Exists("test:/token/|abc"))

	value, err := mr.Get("test:/token/|abc")
	assert.Nil(t, err)
	assert.Equal(t, "v", value)
}

func TestRedisStore_TTL(t *testing.T) {
	mr := newMiniredis(t)
	ctx := context.Background()

	s := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), redis.WithTTL(time.Minute))
	defer s.Close()

	assert.Nil(t, s.Set(ctx, "/token/", "short", []byte("v")))
	mr.FastForward(2 * time.Minute)

	value, err := s.Get(ctx, "/token/", "short")
	assert.Nil(t, err)
	assert.Nil(t, value)

	keys := make([]string, 0)
	assert.Nil(t, s.List(ctx, "/token/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Empty(t, keys)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := redis.New(ctx, "127.0.0.1:1", "", 0)
	assert.NotNil(t, err)
}
