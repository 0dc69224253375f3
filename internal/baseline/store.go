package baseline

import (
	"context"
	"sync"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// ModelStore persists baseline model versions. SaveModel assigns the next
// version number for the (entity, energy source) pair and never overwrites
// an existing version.
type ModelStore interface {
	SaveModel(ctx context.Context, m *domain.BaselineModel) error
	LoadLatestModel(ctx context.Context, entityID, energySource string) (*domain.BaselineModel, error)
	ListModelVersions(ctx context.Context, entityID, energySource string) ([]domain.BaselineModel, error)
}

// MemoryStore is an in-memory ModelStore for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string][]domain.BaselineModel
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{models: make(map[string][]domain.BaselineModel)}
}

func modelKey(entityID, energySource string) string { return entityID + "|" + energySource }

func (s *MemoryStore) SaveModel(_ context.Context, m *domain.BaselineModel) error {
	key := modelKey(m.EntityID, m.EnergySource)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Version = len(s.models[key]) + 1
	s.models[key] = append(s.models[key], cloneModel(*m))
	return nil
}

func (s *MemoryStore) LoadLatestModel(_ context.Context, entityID, energySource string) (*domain.BaselineModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.models[modelKey(entityID, energySource)]
	if len(versions) == 0 {
		return nil, domain.ErrModelNotFound
	}
	m := cloneModel(versions[len(versions)-1])
	return &m, nil
}

func (s *MemoryStore) ListModelVersions(_ context.Context, entityID, energySource string) ([]domain.BaselineModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.models[modelKey(entityID, energySource)]
	out := make([]domain.BaselineModel, len(versions))
	for i, m := range versions {
		out[i] = cloneModel(m)
	}
	return out, nil
}

func cloneModel(m domain.BaselineModel) domain.BaselineModel {
	m.DriverNames = append([]string(nil), m.DriverNames...)
	m.Coefficients = append([]float64(nil), m.Coefficients...)
	m.SelectionSteps = append([]domain.SelectionStep(nil), m.SelectionSteps...)
	if m.CVRSquared != nil {
		v := *m.CVRSquared
		m.CVRSquared = &v
	}
	return m
}
