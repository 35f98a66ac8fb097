package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process LRU cache with per-entry TTL and a size cap.
type Memory struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryItem struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// NewMemory creates a memory cache holding at most maxSize entries. When
// sweepEvery is positive a background goroutine drops expired entries on
// that interval until Close is called.
func NewMemory(maxSize int, sweepEvery time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 10000
	}
	m := &Memory{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go m.sweep(sweepEvery)
	}
	return m
}

func (m *Memory) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CleanExpired()
		case <-m.stop:
			return
		}
	}
}

// Get retrieves a value, moving it to the front of the LRU list.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, exists := m.items[key]
	if !exists {
		return nil, false, nil
	}

	item := elem.Value.(*memoryItem)
	if !m.now().Before(item.expiresAt) {
		m.removeElement(elem)
		return nil, false, nil
	}

	m.lru.MoveToFront(elem)
	return item.data, true, nil
}

// Set stores value under key for ttl, evicting the least recently used entry
// when the cache is full.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &memoryItem{
		key:       key,
		data:      value,
		expiresAt: m.now().Add(ttl),
	}

	if elem, exists := m.items[key]; exists {
		elem.Value = item
		m.lru.MoveToFront(elem)
		return nil
	}

	m.items[key] = m.lru.PushFront(item)

	if m.lru.Len() > m.maxSize {
		if oldest := m.lru.Back(); oldest != nil {
			m.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes a single key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, exists := m.items[key]; exists {
		m.removeElement(elem)
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, elem := range m.items {
		if strings.HasPrefix(key, prefix) {
			m.removeElement(elem)
		}
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Close stops the sweeper. The cache stays usable afterwards.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// CleanExpired removes all expired entries and returns how many were dropped.
func (m *Memory) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var toRemove []*list.Element
	for elem := m.lru.Front(); elem != nil; elem = elem.Next() {
		if !now.Before(elem.Value.(*memoryItem).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		m.removeElement(elem)
	}
	return len(toRemove)
}

// Len returns the current number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) removeElement(elem *list.Element) {
	delete(m.items, elem.Value.(*memoryItem).key)
	m.lru.Remove(elem)
}
