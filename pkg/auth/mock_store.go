package auth

import "sync"

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu   sync.RWMutex
	sets map[string]CookieSet

	// FailStore makes Store return ErrStoreUnavailable, to exercise
	// the manager's fallback chain.
	FailStore bool
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{sets: make(map[string]CookieSet)}
}

func (m *MockStore) Store(set *CookieSet) error {
	if m.FailStore {
		return ErrStoreUnavailable
	}
	if set == nil || set.TargetUID == "" {
		return ErrInvalidCookieSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.TargetUID] = *set
	return nil
}

func (m *MockStore) Retrieve(targetUID string) (*CookieSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[targetUID]
	if !ok {
		return nil, ErrNotFound
	}
	return &set, nil
}

func (m *MockStore) Delete(targetUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[targetUID]; !ok {
		return ErrNotFound
	}
	delete(m.sets, targetUID)
	return nil
}

func (m *MockStore) Exists(targetUID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sets[targetUID]
	return ok
}
