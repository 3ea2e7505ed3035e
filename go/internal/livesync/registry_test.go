package livesync

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn("c1")
	second := newFakeConn("c2")

	assert.Nil(t, r.Register("u1", first))
	assert.Equal(t, Conn(first), r.Register("u1", second))

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())

	// the replaced connection is not told anything
	assert.True(t, first.Open())
	assert.Zero(t, first.count())
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", newFakeConn("c1"))

	r.Unregister("u1")
	r.Unregister("u1")
	r.Unregister("nobody")

	_, ok := r.Lookup("u1")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistry_ReleaseOnlyCurrent(t *testing.T) {
	r := NewRegistry()
	old := newFakeConn("old")
	current := newFakeConn("current")
	r.Register("u1", old)
	r.Register("u1", current)

	assert.False(t, r.Release("u1", old))
	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, current, got)

	assert.True(t, r.Release("u1", current))
	_, ok = r.Lookup("u1")
	assert.False(t, ok)

	assert.False(t, r.Release("u1", current))
}

func TestRegistry_ForEachSnapshot(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 3; i++ {
		r.Register(fmt.Sprintf("u%d", i), newFakeConn(fmt.Sprintf("c%d", i)))
	}

	seen := map[string]string{}
	r.ForEach(func(userID string, conn Conn) {
		seen[userID] = conn.ID()
		// mutating during iteration must not deadlock
		r.Unregister(userID)
	})

	assert.Equal(t, map[string]string{"u0": "c0", "u1": "c1", "u2": "c2"}, seen)
	assert.Zero(t, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%5)
			conn := newFakeConn(fmt.Sprintf("c%d", i))
			r.Register(userID, conn)
			r.Lookup(userID)
			r.ForEach(func(string, Conn) {})
			r.Release(userID, conn)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Len(), 5)
}
