package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryDefaultsAndClear(t *testing.T) {
	m := NewMemory(func() string { return "idle" })
	require.Equal(t, "idle", m.Get(1))

	m.Set(1, "collect")
	require.Equal(t, "collect", m.Get(1))
	require.Equal(t, "idle", m.Get(2))

	m.Clear(1)
	require.Equal(t, "idle", m.Get(1))
}

func TestMemoryNilInitialUsesZeroValue(t *testing.T) {
	m := NewMemory[int](nil)
	require.Equal(t, 0, m.Get(7))
}

func TestMemoryLockSerialisesOneUser(t *testing.T) {
	m := NewMemory(func() int { return 0 })
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(1)
			defer unlock()
			v := m.Get(1)
			time.Sleep(time.Microsecond)
			m.Set(1, v+1)
		}()
	}
	wg.Wait()
	require.Equal(t, 50, m.Get(1))
}

func TestMemoryLockIsPerUser(t *testing.T) {
	m := NewMemory(func() int { return 0 })
	unlock := m.Lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := m.Lock(2)
		release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user 2 blocked by user 1")
	}
}
