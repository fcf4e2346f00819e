package session

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = time.Minute

// Memory is an in-process Store with per-key expiry. Data is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]entry
	ttl   time.Duration
	now   func() time.Time
	clean *time.Ticker
	done  chan struct{}
	once  sync.Once
}

type entry struct {
	value  []byte
	expire time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		data:  make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
		clean: time.NewTicker(cleanupInterval),
		done:  make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *Memory) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	if err := validate(sessionID, key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[memoryKey(sessionID, key)]
	if !ok || !m.now().Before(e.expire) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) Set(_ context.Context, sessionID, key string, value []byte) error {
	if err := validate(sessionID, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[memoryKey(sessionID, key)] = entry{
		value:  append([]byte(nil), value...),
		expire: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID, key string) error {
	if err := validate(sessionID, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, memoryKey(sessionID, key))
	return nil
}

func (m *Memory) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)
	})
	return nil
}

func (m *Memory) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.evictExpired()
		}
	}
}

func (m *Memory) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.data {
		if !now.Before(e.expire) {
			delete(m.data, k)
		}
	}
}

func memoryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}
