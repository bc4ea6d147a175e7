package mem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/warriorguo/asl/store"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return NewMemStoreWithErrHandler(nil)
}

// NewMemStoreWithErrHandler fails every call with what errHandler returns, nil handler never fails.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	if errHandler == nil {
		errHandler = func() error { return nil }
	}
	return &memStore{
		buckets: make(map[string]bucket),
		failure: errHandler,
	}
}

type bucket map[string][]byte

func (b bucket) sortedKeys() []string {
	keys := make([]string, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

/**
 * memStore keeps token statuses in the process memory, one bucket per prefix.
 * It serves tests and single process hosts, statuses are lost when the process exits.
 */
type memStore struct {
	mu sync.RWMutex

	failure func() error

	buckets map[string]bucket
}

func (m *memStore) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefixes := make([]string, 0, len(m.buckets))
	for prefix := range m.buckets {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var sb strings.Builder
	for _, prefix := range prefixes {
		b := m.buckets[prefix]
		for _, key := range b.sortedKeys() {
			fmt.Fprintf(&sb, "%s%s: %s\n", prefix, key, b[key])
		}
	}
	return sb.String()
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.buckets[prefix][key]
	if !exists {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	if err := m.failure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.buckets[prefix]
	if !exists {
		b = make(bucket)
		m.buckets[prefix] = b
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	if err := m.failure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.buckets[prefix]
	if !exists {
		return nil
	}
	delete(b, key)
	if len(b) == 0 {
		delete(m.buckets, prefix)
	}
	return nil
}

// List walks a snapshot of the keys, iterator may modify the store.
func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	if err := m.failure(); err != nil {
		return err
	}

	m.mu.RLock()
	keys := m.buckets[prefix].sortedKeys()
	m.mu.RUnlock()

	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return nil
}
