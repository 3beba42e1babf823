package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateGetRemove(t *testing.T) {
	st := NewStore(Options{Publisher: &eventRecorder{}})
	defer st.Shutdown()

	s := st.Create()
	require.NotNil(t, s)
	assert.Equal(t, 1, st.Len())

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = st.Get(uuid.New())
	assert.False(t, ok)

	st.Remove(s.ID)
	assert.Equal(t, 0, st.Len())
	_, ok = st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreIdleEvictionDeregisters(t *testing.T) {
	st := NewStore(Options{
		Publisher:   &eventRecorder{},
		IdleTimeout: 50 * time.Millisecond,
	})
	defer st.Shutdown()

	s := st.Create()
	require.Equal(t, 1, st.Len())

	require.Eventually(t, func() bool {
		_, ok := st.Get(s.ID)
		return !ok && s.Closed()
	}, 2*time.Second, 10*time.Millisecond, "evicted session should leave the store")
}

func TestStoreSweeperDropsClosedSessions(t *testing.T) {
	st := NewStore(Options{Publisher: &eventRecorder{}})
	st.StartSweeper(20 * time.Millisecond)
	defer st.Shutdown()

	s := st.Create()
	s.Close()

	require.Eventually(t, func() bool {
		return st.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStoreShutdownClosesSessions(t *testing.T) {
	st := NewStore(Options{Publisher: &eventRecorder{}})
	a := st.Create()
	b := st.Create()

	st.Shutdown()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Equal(t, 0, st.Len())
}
