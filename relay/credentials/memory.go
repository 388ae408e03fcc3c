package credentials

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryRecord struct {
	token     string
	groups    []int64
	stories   *int64
	updatedAt time.Time
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]memoryRecord
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store for tests and dry runs.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]memoryRecord),
		now:     time.Now,
	}
}

// Get returns the credential for a user if one was stored.
func (m *MemoryStore) Get(_ context.Context, userID int64) (Credential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[userID]
	if !ok {
		return Credential{}, false, nil
	}
	groups := append([]int64(nil), rec.groups...)
	return resolve(userID, rec.token, groups, rec.stories, rec.updatedAt), true, nil
}

// Set replaces the record for the user.
func (m *MemoryStore) Set(_ context.Context, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	rec := memoryRecord{
		token:     strings.TrimSpace(in.Token),
		groups:    append([]int64(nil), in.GroupIDs...),
		updatedAt: m.now(),
	}
	if in.StoriesGroupID != nil {
		v := *in.StoriesGroupID
		rec.stories = &v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[in.UserID] = rec
	return nil
}
