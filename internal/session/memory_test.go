package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/verify"
)

type recordingArchiver struct {
	mu       sync.Mutex
	sessions []Session
	err      error
}

func (r *recordingArchiver) ArchiveSession(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return r.err
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestMemory_GetCreatesFreshSession(t *testing.T) {
	m := NewMemory(WithClock(fixedClock()))
	s := m.Get("s1")

	assert.Equal(t, "s1", s.ID)
	assert.False(t, s.HasActiveProblem())
	assert.Equal(t, hint.AwaitingProblem, s.Phase)
	assert.Zero(t, s.HintLevel)
	assert.Empty(t, s.Attempts)
	assert.Equal(t, 1, m.Len())

	again := m.Get("s1")
	assert.Equal(t, s.CreatedAt, again.CreatedAt)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_PeekDoesNotCreate(t *testing.T) {
	m := NewMemory()
	_, ok := m.Peek("s1")
	assert.False(t, ok)
	assert.Zero(t, m.Len())

	_, err := m.Apply("s1", AddWeakConcept("a"))
	require.NoError(t, err)
	s, ok := m.Peek("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, s.Weak())

	require.NoError(t, m.Destroy(context.Background(), "s1"))
	_, ok = m.Peek("s1")
	assert.False(t, ok)
}

func TestMemory_ApplyIsAtomicAndVersioned(t *testing.T) {
	m := NewMemory()
	s, err := m.Apply("s1",
		SetActiveProblem("p1", 3),
		RaiseHintLevel(2),
		AddWeakConcept("factoring"),
	)
	require.NoError(t, err)
	assert.Equal(t, "p1", s.ActiveProblemID)
	assert.Equal(t, 2, s.HintLevel)
	assert.Equal(t, []string{"factoring"}, s.Weak())
	assert.Equal(t, []string{"p1"}, s.Seen())
	assert.Equal(t, 1, s.Version)

	s, err = m.Apply("s1", RaiseHintLevel(1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.HintLevel, "hint level must not decrease")
	assert.Equal(t, 2, s.Version)
}

func TestMemory_HintLevelCappedAtStepCount(t *testing.T) {
	m := NewMemory()
	s, err := m.Apply("s1", SetActiveProblem("p1", 2), RaiseHintLevel(5))
	require.NoError(t, err)
	assert.Equal(t, 2, s.HintLevel)
}

func TestMemory_SetActiveProblemResetsHintState(t *testing.T) {
	m := NewMemory()
	_, err := m.Apply("s1",
		SetActiveProblem("p1", 3),
		RaiseHintLevel(3),
		AdvanceStep(2),
		SetUnparseableStreak(2),
		SetLastCategory(verify.CategorySignError),
		AddWeakConcept("w"),
		AppendAttempt("x = 1", verify.Verdict{Status: verify.StatusIncorrectStep}, time.Now()),
	)
	require.NoError(t, err)

	s, err := m.Apply("s1", SetActiveProblem("p2", 2))
	require.NoError(t, err)
	assert.Equal(t, "p2", s.ActiveProblemID)
	assert.Zero(t, s.HintLevel)
	assert.Zero(t, s.StepReached)
	assert.Zero(t, s.ConsecutiveUnparseable)
	assert.Equal(t, verify.CategoryNone, s.LastErrorCategory)
	assert.Len(t, s.Attempts, 1, "attempt history is retained")
	assert.Equal(t, []string{"w"}, s.Weak(), "weak concepts are retained")
	assert.Equal(t, []string{"p1", "p2"}, s.Seen())
}

func TestMemory_AttemptsAppendOnly(t *testing.T) {
	m := NewMemory()
	_, err := m.Apply("s1", SetActiveProblem("p1", 2), RaiseHintLevel(1))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.Apply("s1", AppendAttempt(fmt.Sprintf("try %d", i), verify.Verdict{Status: verify.StatusUnparseable}, time.Now()))
		require.NoError(t, err)
	}
	s := m.Get("s1")
	require.Len(t, s.Attempts, 3)
	for i, a := range s.Attempts {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, "p1", a.ProblemID)
		assert.Equal(t, 1, a.HintLevel)
	}
}

func TestMemory_SnapshotsAreCopies(t *testing.T) {
	m := NewMemory()
	s, err := m.Apply("s1", AddWeakConcept("a"), AppendAttempt("1", verify.Verdict{}, time.Now()))
	require.NoError(t, err)

	s.WeakConcepts["b"] = true
	s.Attempts[0].Input = "changed"

	fresh := m.Get("s1")
	assert.Equal(t, []string{"a"}, fresh.Weak())
	assert.Equal(t, "1", fresh.Attempts[0].Input)
}

func TestMemory_MutationsDoNotAliasInput(t *testing.T) {
	base := newSession("s", time.Now())
	base.WeakConcepts["a"] = true

	next := AddWeakConcept("b")(base)
	assert.Equal(t, []string{"a"}, base.Weak())
	assert.Equal(t, []string{"a", "b"}, next.Weak())
}

func TestMemory_DestroyArchivesAndRejectsUpdates(t *testing.T) {
	arch := &recordingArchiver{}
	m := NewMemory(WithArchiver(arch))
	_, err := m.Apply("s1", SetActiveProblem("p1", 2))
	require.NoError(t, err)

	require.NoError(t, m.Destroy(context.Background(), "s1"))
	require.Len(t, arch.sessions, 1)
	assert.Equal(t, "p1", arch.sessions[0].ActiveProblemID)

	_, err = m.Apply("s1", RaiseHintLevel(1))
	assert.True(t, errors.Is(err, ErrSessionNotFound), "got %v", err)

	s := m.Get("s1")
	assert.False(t, s.HasActiveProblem(), "get after destroy recreates an empty session")
	_, err = m.Apply("s1", RaiseHintLevel(1))
	assert.NoError(t, err)
}

func TestMemory_DestroyUnknownIsNoop(t *testing.T) {
	arch := &recordingArchiver{}
	m := NewMemory(WithArchiver(arch))
	assert.NoError(t, m.Destroy(context.Background(), "nope"))
	assert.Empty(t, arch.sessions)
}

func TestMemory_DestroyReportsArchiveFailure(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("disk full")}
	m := NewMemory(WithArchiver(arch))
	m.Get("s1")

	err := m.Destroy(context.Background(), "s1")
	require.Error(t, err)
	assert.Zero(t, m.Len(), "session is removed even when archiving fails")
}

func TestMemory_ConcurrentAppendsSameSession(t *testing.T) {
	m := NewMemory()
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Apply("shared", AppendAttempt(fmt.Sprint(i), verify.Verdict{}, time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s := m.Get("shared")
	require.Len(t, s.Attempts, n)
	for i, a := range s.Attempts {
		assert.Equal(t, i, a.Index)
	}
	assert.Equal(t, n, s.Version)
}

func TestMemory_LockIsExclusivePerSession(t *testing.T) {
	m := NewMemory()
	var inFlight, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("s1")
			defer unlock()
			cur := inFlight.Add(1)
			for {
				prev := maxSeen.Load()
				if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestMemory_LockStaysExclusiveAcrossDestroy(t *testing.T) {
	m := NewMemory()
	m.Get("s1")
	unlockA := m.Lock("s1")

	bIn := make(chan struct{})
	releaseB := make(chan struct{})
	go func() {
		unlock := m.Lock("s1")
		close(bIn)
		<-releaseB
		unlock()
	}()

	// Let B queue behind A before the session is destroyed.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Destroy(context.Background(), "s1"))
	unlockA()
	<-bIn

	cIn := make(chan struct{})
	go func() {
		unlock := m.Lock("s1")
		close(cIn)
		unlock()
	}()
	select {
	case <-cIn:
		t.Fatal("a new turn entered while the queued turn still held the session")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseB)
	select {
	case <-cIn:
	case <-time.After(time.Second):
		t.Fatal("new turn never entered after the queued turn left")
	}
}

func TestMemory_LockReleasesBookkeeping(t *testing.T) {
	m := NewMemory()
	m.Lock("s1")()
	m.Lock("s1")()
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.turns)
}

func TestMemory_DifferentSessionsDoNotContend(t *testing.T) {
	m := NewMemory()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on session b blocked behind session a")
	}
}
