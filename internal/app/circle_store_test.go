package app

import (
	"testing"
	"time"

	"github.com/dkeye/Circles/internal/domain"
	"github.com/stretchr/testify/require"
)

func newMember(t *testing.T, name string) *domain.Member {
	t.Helper()
	m, err := domain.NewMember(name, nil, time.Now())
	require.NoError(t, err)
	return m
}

func TestCircleStore_CreateAcquireRemove(t *testing.T) {
	req := require.New(t)
	store := NewCircleStore(NewCodeGenerator(0))
	founder := newMember(t, "Alice")

	// When a circle is created
	e, err := store.create(founder)
	req.NoError(err)
	code := e.circle.Code
	e.mu.Unlock()

	// Then it can be acquired and snapshotted
	req.True(store.Exists(code))
	snap, ok := store.Snapshot(code)
	req.True(ok)
	req.Equal(founder.ID, snap.Owner)
	req.Equal(StoreStats{Circles: 1, Members: 1}, store.Stats())

	// When it is removed
	e, ok = store.acquire(code)
	req.True(ok)
	store.remove(e)
	e.mu.Unlock()

	// Then it is absent, and a stale entry pointer observes it as ended
	req.False(store.Exists(code))
	_, ok = store.acquire(code)
	req.False(ok)
	req.True(e.ended)
	req.Equal(StoreStats{}, store.Stats())
}

func TestCircleStore_CreatedEntryIsLocked(t *testing.T) {
	req := require.New(t)
	store := NewCircleStore(NewCodeGenerator(0))

	e, err := store.create(newMember(t, "Alice"))
	req.NoError(err)

	acquired := make(chan struct{})
	go func() {
		other, ok := store.acquire(e.circle.Code)
		if ok {
			other.mu.Unlock()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		req.Fail("entry was acquirable before the creator released it")
	case <-time.After(50 * time.Millisecond):
	}
	e.mu.Unlock()
	<-acquired
}
