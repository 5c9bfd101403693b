package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFO(t *testing.T) {
	m := NewMailbox[int]()
	for i := 0; i < 100; i++ {
		require.True(t, m.Send(i))
	}
	for i := 0; i < 100; i++ {
		got, ok := m.Recv()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, 0, m.Len())
}

func TestMailbox_CloseDrains(t *testing.T) {
	m := NewMailbox[string]()
	m.Send("a")
	m.Send("b")
	m.Close()

	assert.False(t, m.Send("c"), "send after close is rejected")

	got, ok := m.Recv()
	require.True(t, ok)
	assert.Equal(t, "a", got)
	got, ok = m.Recv()
	require.True(t, ok)
	assert.Equal(t, "b", got)

	_, ok = m.Recv()
	assert.False(t, ok, "closed and drained")
}

func TestMailbox_ConcurrentSenders(t *testing.T) {
	m := NewMailbox[int]()

	var wg sync.WaitGroup
	const senders, each = 8, 500
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				m.Send(i)
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < senders*each {
			if _, ok := m.Recv(); ok {
				received++
			}
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, senders*each, received)
}

func TestMailbox_TryRecv(t *testing.T) {
	m := NewMailbox[int]()
	_, ok := m.TryRecv()
	assert.False(t, ok)

	m.Send(42)
	got, ok := m.TryRecv()
	require.True(t, ok)
	assert.Equal(t, 42, got)
}
