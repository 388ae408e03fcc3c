package state

import "sync"

type session[T any] struct {
	// turn serialises event handling for one user.
	turn  sync.Mutex
	value T
}

// Memory is an in-memory session store keyed by Telegram user id.
type Memory[T any] struct {
	mu       sync.Mutex
	initial  func() T
	sessions map[int64]*session[T]
}

// NewMemory constructs a store whose absent sessions read as initial().
func NewMemory[T any](initial func() T) *Memory[T] {
	if initial == nil {
		initial = func() T {
			var zero T
			return zero
		}
	}
	return &Memory[T]{
		initial:  initial,
		sessions: make(map[int64]*session[T]),
	}
}

func (m *Memory[T]) entry(userID int64) *session[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &session[T]{value: m.initial()}
		m.sessions[userID] = s
	}
	return s
}

// Lock waits for the user's turn and returns the release func. Waiters are
// admitted one at a time in no guaranteed order; different users never
// block each other.
func (m *Memory[T]) Lock(userID int64) func() {
	s := m.entry(userID)
	s.turn.Lock()
	return s.turn.Unlock
}

// Get returns the current session value of a user.
func (m *Memory[T]) Get(userID int64) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.value
	}
	return m.initial()
}

// Set replaces the session value of a user.
func (m *Memory[T]) Set(userID int64, value T) {
	s := m.entry(userID)
	m.mu.Lock()
	s.value = value
	m.mu.Unlock()
}

// Clear resets the session of a user to the initial value. The entry itself
// is kept so that goroutines waiting in Lock stay serialised.
func (m *Memory[T]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.value = m.initial()
	}
}
