package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryConfig struct {
	defaultTTL time.Duration
	sweepEvery time.Duration
	maxEntries int
}

// Memory is a process-local cache. Entries expire lazily on access and in a
// periodic sweep. With a size limit, the least recently used entry is
// dropped to make room.
type Memory[V any] struct {
	cfg     memoryConfig
	entries map[string]*list.Element
	lru     *list.List // front is most recently used
	stop    chan struct{}
	mu      sync.Mutex
	closed  bool
}

type memoryEntry[V any] struct {
	key     string
	value   V
	expires time.Time // zero never expires
}

func (e *memoryEntry[V]) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryConfig holds the tunables accepted by NewMemory.
type MemoryConfig struct {
	// DefaultTTL applies when Set is called with a zero ttl. Default: 1h.
	DefaultTTL time.Duration

	// SweepInterval is how often expired entries are purged. Default: 1m.
	// A negative value disables the sweeper and expired entries are then
	// dropped on access only.
	SweepInterval time.Duration

	// MaxEntries bounds the cache size. Zero means unbounded.
	MaxEntries int
}

// NewMemory creates an in-memory cache.
// Call Close to stop the sweeper goroutine.
//
//	instances := cache.NewMemory[any](cache.MemoryConfig{MaxEntries: 1000})
//	defer instances.Close()
func NewMemory[V any](cfgs ...MemoryConfig) *Memory[V] {
	cfg := memoryConfig{
		defaultTTL: time.Hour,
		sweepEvery: time.Minute,
	}
	for _, c := range cfgs {
		if c.DefaultTTL != 0 {
			cfg.defaultTTL = c.DefaultTTL
		}
		if c.SweepInterval != 0 {
			cfg.sweepEvery = c.SweepInterval
		}
		if c.MaxEntries > 0 {
			cfg.maxEntries = c.MaxEntries
		}
	}

	m := &Memory[V]{
		cfg:     cfg,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		stop:    make(chan struct{}),
	}
	if cfg.sweepEvery > 0 {
		go m.sweep(cfg.sweepEvery)
	}
	return m
}

// Get implements Cache. A hit marks the entry as recently used.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	el, ok := m.entries[key]
	if !ok {
		return zero, ErrNotFound
	}
	e := el.Value.(*memoryEntry[V])
	if e.expired(time.Now()) {
		m.remove(el)
		return zero, ErrNotFound
	}
	m.lru.MoveToFront(el)
	return e.value, nil
}

// Set implements Cache.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.cfg.defaultTTL
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry[V])
		e.value, e.expires = value, expires
		m.lru.MoveToFront(el)
		return nil
	}

	if m.cfg.maxEntries > 0 && m.lru.Len() >= m.cfg.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}
	m.entries[key] = m.lru.PushFront(&memoryEntry[V]{key: key, value: value, expires: expires})
	return nil
}

// Delete implements Cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.remove(el)
	}
	return nil
}

// Has implements Cache.
func (m *Memory[V]) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	return err == nil, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close stops the sweeper. Later Sets fail with ErrClosed.
// Calling Close more than once is safe.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.stop)
	}
	return nil
}

func (m *Memory[V]) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-t.C:
			m.purge(now)
		}
	}
}

func (m *Memory[V]) purge(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for el := m.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*memoryEntry[V]).expired(now) {
			m.remove(el)
		}
		el = next
	}
}

// remove drops el. The caller holds m.mu.
func (m *Memory[V]) remove(el *list.Element) {
	e := m.lru.Remove(el).(*memoryEntry[V])
	delete(m.entries, e.key)
}

var _ Cache[any] = (*Memory[any])(nil)
