package sessions

import (
	"log"
	"strings"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Key identifies one session: a room, optionally narrowed to a target
// user inside that room.
type Key struct {
	Room   string
	Target string
}

func (k Key) String() string {
	if k.Target == "" {
		return k.Room
	}
	return k.Room + "|" + k.Target
}

func parseKey(s string) Key {
	room, target, _ := strings.Cut(s, "|")
	return Key{Room: room, Target: target}
}

type entry[T any] struct {
	mu           sync.Mutex // key-scoped lock for the payload
	payload      T
	createdAt    time.Time
	lastActivity time.Time
}

// Manager is a per-key state container with idle-timeout eviction,
// shared by every stateful feature so the same concurrency pattern is
// not re-derived per feature. The backing map is sharded, so unrelated
// rooms never serialize behind one global lock.
type Manager[T any] struct {
	name    string
	idle    time.Duration
	onEvict func(Key, T)

	m cmap.ConcurrentMap[string, *entry[T]]

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager creates a manager and starts its background sweep. onEvict
// runs outside all map locks and must not assume the connection is open.
func NewManager[T any](name string, idle, sweepInterval time.Duration, onEvict func(Key, T)) *Manager[T] {
	if idle <= 0 {
		idle = 90 * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Second
	}
	m := &Manager[T]{
		name:    name,
		idle:    idle,
		onEvict: onEvict,
		m:       cmap.New[*entry[T]](),
		stop:    make(chan struct{}),
	}
	go m.sweepLoop(sweepInterval)
	return m
}

// GetOrCreate returns the payload for key, creating it via factory on
// first use. The factory runs under the shard lock and must be cheap.
// Existing sessions are touched.
func (m *Manager[T]) GetOrCreate(key Key, factory func() T) T {
	now := time.Now()
	e := m.m.Upsert(key.String(), nil, func(exists bool, cur, _ *entry[T]) *entry[T] {
		if exists && cur != nil {
			return cur
		}
		metricCreated.WithLabelValues(m.name).Inc()
		return &entry[T]{payload: factory(), createdAt: now, lastActivity: now}
	})
	e.mu.Lock()
	e.lastActivity = now
	v := e.payload
	e.mu.Unlock()
	return v
}

// Get returns a copy of the payload without refreshing activity.
func (m *Manager[T]) Get(key Key) (T, bool) {
	e, ok := m.m.Get(key.String())
	if !ok {
		var zero T
		return zero, false
	}
	e.mu.Lock()
	v := e.payload
	e.mu.Unlock()
	return v, true
}

// Update mutates the payload under its key-scoped lock and refreshes
// activity. Returns false when the session vanished; callers treat that
// as a no-op, not an error. The mutator must not block on I/O.
func (m *Manager[T]) Update(key Key, mutate func(*T)) bool {
	e, ok := m.m.Get(key.String())
	if !ok {
		return false
	}
	e.mu.Lock()
	mutate(&e.payload)
	e.lastActivity = time.Now()
	e.mu.Unlock()
	return true
}

// Touch refreshes activity without mutating the payload.
func (m *Manager[T]) Touch(key Key) bool {
	e, ok := m.m.Get(key.String())
	if !ok {
		return false
	}
	e.mu.Lock()
	e.lastActivity = time.Now()
	e.mu.Unlock()
	return true
}

// Remove deletes the session explicitly (e.g. game over) and returns
// its final payload. The eviction callback does not fire.
func (m *Manager[T]) Remove(key Key) (T, bool) {
	var out T
	found := false
	m.m.RemoveCb(key.String(), func(_ string, cur *entry[T], exists bool) bool {
		if !exists {
			return false
		}
		cur.mu.Lock()
		out = cur.payload
		cur.mu.Unlock()
		found = true
		return true
	})
	return out, found
}

// Range visits a copy of every live session.
func (m *Manager[T]) Range(fn func(Key, T) bool) {
	for k, e := range m.m.Items() {
		e.mu.Lock()
		v := e.payload
		e.mu.Unlock()
		if !fn(parseKey(k), v) {
			return
		}
	}
}

func (m *Manager[T]) Len() int { return m.m.Count() }

// Stop halts the background sweep. Live sessions are left in place.
func (m *Manager[T]) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager[T]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.stop:
			return
		}
	}
}

// sweep removes every session idle past the threshold, then runs the
// eviction callbacks outside the map locks so notification I/O cannot
// block other sessions.
func (m *Manager[T]) sweep(now time.Time) {
	type victim struct {
		key     Key
		payload T
	}
	var victims []victim
	for k, e := range m.m.Items() {
		e.mu.Lock()
		idle := now.Sub(e.lastActivity)
		e.mu.Unlock()
		if idle <= m.idle {
			continue
		}
		removed := m.m.RemoveCb(k, func(_ string, cur *entry[T], exists bool) bool {
			if !exists || cur != e {
				return false
			}
			// Re-check under the shard lock: a touch may have raced the
			// idle read above.
			cur.mu.Lock()
			stale := now.Sub(cur.lastActivity) > m.idle
			cur.mu.Unlock()
			return stale
		})
		if removed {
			victims = append(victims, victim{parseKey(k), e.payload})
		}
	}
	for _, v := range victims {
		metricEvicted.WithLabelValues(m.name).Inc()
		log.Printf("[sessions] %s: evicted idle session %s", m.name, v.key)
		if m.onEvict != nil {
			m.onEvict(v.key, v.payload)
		}
	}
}
