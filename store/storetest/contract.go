// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/store"
)

// RunContract exercises s with keys under prefixes unique to the run.
func RunContract(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		value, err := s.Get(ctx, "/contract/missing/", "nothing")
		assert.Nil(t, err)
		assert.Nil(t, value)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		assert.Nil(t, s.Set(ctx, "/contract/set/", "key1", []byte("value1")))
		value, err := s.Get(ctx, "/contract/set/", "key1")
		assert.Nil(t, err)
		assert.Equal(t, []byte("value1"), value)

		assert.Nil(t, s.Set(ctx, "/contract/set/", "key1", []byte("value2")))
		value, err = s.Get(ctx, "/contract/set/", "key1")
		assert.Nil(t, err)
		assert.Equal(t, []byte("value2"), value)

		binary := []byte{0x00, 0x01, 0xFF, 0xFE}
		assert.Nil(t, s.Set(ctx, "/contract/set/", "binary", binary))
		value, err = s.Get(ctx, "/contract/set/", "binary")
		assert.Nil(t, err)
		assert.Equal(t, binary, value)

		assert.Nil(t, s.Remove(ctx, "/contract/set/", "key1"))
		assert.Nil(t, s.Remove(ctx, "/contract/set/", "binary"))
	})

	t.Run("Remove", func(t *testing.T) {
		assert.Nil(t, s.Set(ctx, "/contract/remove/", "key1", []byte("value1")))
		assert.Nil(t, s.Remove(ctx, "/contract/remove/", "key1"))

		value, err := s.Get(ctx, "/contract/remove/", "key1")
		assert.Nil(t, err)
		assert.Nil(t, value)

		assert.Nil(t, s.Remove(ctx, "/contract/remove/", "never-set"))
	})

	t.Run("List", func(t *testing.T) {
		for _, key := range []string{"a", "b", "c"} {
			assert.Nil(t, s.Set(ctx, "/contract/list/", key, []byte(key)))
		}
		assert.Nil(t, s.Set(ctx, "/contract/other/", "a", []byte("other")))

		keys := make([]string, 0)
		assert.Nil(t, s.List(ctx, "/contract/list/", func(key string) bool {
			keys = append(keys, key)
			return true
		}))
		assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)

		count := 0
		assert.Nil(t, s.List(ctx, "/contract/list/", func(key string) bool {
			count++
			return count < 2
		}))
		assert.Equal(t, 2, count)

		empty := 0
		assert.Nil(t, s.List(ctx, "/contract/none/", func(key string) bool {
			empty++
			return true
		}))
		assert.Equal(t, 0, empty)

		for _, key := range []string{"a", "b", "c"} {
			assert.Nil(t, s.Remove(ctx, "/contract/list/", key))
		}
		assert.Nil(t, s.Remove(ctx, "/contract/other/", "a"))
	})
}
