// Package cache stores corrected output keyed by the input and the
// options that produced it, in memory or in Redis.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"gcode-corrector/pkg/corrector"
)

// Entry is one cached correction.
type Entry struct {
	Output  []byte          `json:"output"`
	Stats   corrector.Stats `json:"stats"`
	Skipped map[string]int  `json:"skipped,omitempty"`
}

// Cache is a result store. Get reports a miss with ok == false and a nil
// error.
type Cache interface {
	Get(ctx context.Context, key string) (entry *Entry, ok bool, err error)
	Set(ctx context.Context, key string, entry *Entry) error
	Close() error
}

// Key hashes opts and body. Any option change gives a different key.
func Key(opts corrector.Options, body []byte) string {
	h := sha256.New()
	// Options holds only bools and floats; Marshal cannot fail.
	enc, _ := json.Marshal(opts)
	h.Write(enc)
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is an in-process LRU cache bounded by entry count.
type Memory struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[string]*list.Element
}

type memoryItem struct {
	key   string
	entry *Entry
}

// NewMemory returns an LRU cache holding at most max entries. max <= 0
// means 128.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 128
	}
	return &Memory{
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryItem).entry, true, nil
}

func (m *Memory) Set(_ context.Context, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		el.Value.(*memoryItem).entry = entry
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.order.PushFront(&memoryItem{key: key, entry: entry})
	for m.order.Len() > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryItem).key)
	}
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) Close() error { return nil }
