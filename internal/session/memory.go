// Package session holds per-conversation tutoring state in a keyed store
// with one exclusive region per session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a destroyed session is updated.
var ErrSessionNotFound = errors.New("session not found")

// Archiver receives the final state of a destroyed session.
type Archiver interface {
	ArchiveSession(ctx context.Context, s Session) error
}

type entry struct {
	mu   sync.Mutex
	s    Session
	dead bool
}

// turnLock serializes whole turns for one id. It lives apart from the
// entry so destroying and recreating a session keeps a single region.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

// Memory is the keyed session store. It is safe for concurrent use;
// different sessions never contend on the same lock.
type Memory struct {
	mu        sync.Mutex
	entries   map[string]*entry
	destroyed map[string]bool
	turns     map[string]*turnLock

	archiver Archiver
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithArchiver hands destroyed sessions to a.
func WithArchiver(a Archiver) Option {
	return func(m *Memory) { m.archiver = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Memory) { m.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries:   make(map[string]*entry),
		destroyed: make(map[string]bool),
		turns:     make(map[string]*turnLock),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for id, creating it when create is set or
// the id was never destroyed.
func (m *Memory) lookup(id string, create bool) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	if m.destroyed[id] && !create {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	delete(m.destroyed, id)
	e := &entry{s: newSession(id, m.now())}
	m.entries[id] = e
	return e, nil
}

// Get returns a snapshot of the session, creating a fresh one on first
// access or after it was destroyed. It never fails.
func (m *Memory) Get(id string) Session {
	for {
		e, _ := m.lookup(id, true)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		s := e.s.Clone()
		e.mu.Unlock()
		return s
	}
}

// Peek returns a snapshot of a live session without creating one.
func (m *Memory) Peek(id string) (Session, bool) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return Session{}, false
	}
	return e.s.Clone(), true
}

// Apply runs the mutations in order as one atomic update and returns the
// resulting snapshot. It fails with ErrSessionNotFound when the session was
// destroyed and not fetched since.
func (m *Memory) Apply(id string, muts ...Mutation) (Session, error) {
	e, err := m.lookup(id, false)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return Session{}, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	s := e.s.Clone()
	for _, mut := range muts {
		s = mut(s)
	}
	if s.HintLevel > s.StepCount {
		s.HintLevel = s.StepCount
	}
	s.Version = e.s.Version + 1
	s.UpdatedAt = m.now()
	e.s = s
	return s.Clone(), nil
}

// Lock enters the session's exclusive region and returns the function that
// leaves it. The orchestrator holds it across a whole turn. The region is
// keyed by id and survives Destroy, so a turn queued behind an ending
// session still excludes turns that start after it.
func (m *Memory) Lock(id string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.turns[id]
	if !ok {
		l = &turnLock{}
		m.turns[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.turns, id)
		}
		m.mu.Unlock()
	}
}

// Destroy ends a session. The final state goes to the archiver, if any;
// archive failures are logged and returned but the session is gone either
// way. Destroying an unknown id is a no-op.
func (m *Memory) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
		m.destroyed[id] = true
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	e.dead = true
	final := e.s.Clone()
	e.mu.Unlock()

	if m.archiver == nil {
		return nil
	}
	if err := m.archiver.ArchiveSession(ctx, final); err != nil {
		m.logger.Warn("failed to archive session", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("archive session %q: %w", id, err)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
