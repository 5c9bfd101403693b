// Package actor provides the mailbox primitive every actor in the server
// drains. Sends never block and never apply backpressure; each actor's state
// is mutated only by the one goroutine receiving from its mailbox.
package actor

import "sync"

// Mailbox is an unbounded FIFO queue with a single consumer. Messages from
// one sender are received in send order.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	notify chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Send enqueues a message. Returns false if the mailbox is closed.
func (m *Mailbox[T]) Send(msg T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Recv blocks until a message arrives or the mailbox is closed and drained.
func (m *Mailbox[T]) Recv() (T, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, true
		}
		if m.closed {
			m.mu.Unlock()
			var zero T
			return zero, false
		}
		m.mu.Unlock()
		<-m.notify
	}
}

// TryRecv returns the next message without blocking.
func (m *Mailbox[T]) TryRecv() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		var zero T
		return zero, false
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, true
}

// Len returns the queued message count.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close stops further sends. Queued messages remain receivable.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}
