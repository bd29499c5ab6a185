package storage

import (
	"sync"

	"github.com/example/accessible-dispatch/internal/models"
)

// DispatchStore persists the trace of dispatch decisions.
type DispatchStore interface {
	SaveDispatch(r *models.DispatchRecord) error
	UpdateDispatch(r *models.DispatchRecord) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.DispatchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.DispatchRecord)}
}

func (m *MemoryStore) SaveDispatch(r *models.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.RequestID] = r
	return nil
}

func (m *MemoryStore) UpdateDispatch(r *models.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.RequestID] = r
	return nil
}

func (m *MemoryStore) Get(requestID string) (*models.DispatchRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[requestID]
	return r, ok
}
