package rubric

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	defs      map[int64]Definition
	instances map[string]Instance
	fillings  map[string][]Filling
}

// NewInMemoryStore returns a Store backed by maps, used by tests and the
// CLI's dry-run paths.
func NewInMemoryStore() Store {
	return &memoryStore{
		nextID:    1,
		defs:      map[int64]Definition{},
		instances: map[string]Instance{},
		fillings:  map[string][]Filling{},
	}
}

func (m *memoryStore) GetDefinition(_ context.Context, id int64) (Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[id]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return cloneDefinition(d), nil
}

func (m *memoryStore) SaveDefinition(_ context.Context, d Definition) (Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == 0 {
		d.ID = m.nextID
		m.nextID++
	}
	for i := range d.Criteria {
		c := &d.Criteria[i]
		if c.ID == 0 {
			c.ID = m.nextID
			m.nextID++
		}
		for j := range c.Levels {
			if c.Levels[j].ID == 0 {
				c.Levels[j].ID = m.nextID
				m.nextID++
			}
		}
	}
	m.defs[d.ID] = cloneDefinition(d)

	// Fillings for criteria no longer in the definition are dropped, the
	// same cascade the SQL store gets from foreign keys.
	keep := map[int64]bool{}
	for i := range d.Criteria {
		keep[d.Criteria[i].ID] = true
	}
	for instID, inst := range m.instances {
		if inst.DefinitionID != d.ID {
			continue
		}
		fs := m.fillings[instID][:0]
		for _, f := range m.fillings[instID] {
			if keep[f.CriterionID] {
				fs = append(fs, f)
			}
		}
		m.fillings[instID] = fs
	}
	return cloneDefinition(d), nil
}

func (m *memoryStore) DeleteDefinition(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[id]; !ok {
		return ErrNotFound
	}
	delete(m.defs, id)
	for instID, inst := range m.instances {
		if inst.DefinitionID == id {
			delete(m.instances, instID)
			delete(m.fillings, instID)
		}
	}
	return nil
}

func (m *memoryStore) ListDefinitions(_ context.Context, opts ListOpts) ([]DefinitionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []DefinitionSummary
	for _, d := range m.defs {
		if opts.Status != "" && d.Status != opts.Status {
			continue
		}
		if opts.Q != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(opts.Q)) {
			continue
		}
		n := 0
		for _, inst := range m.instances {
			if inst.DefinitionID == d.ID {
				n++
			}
		}
		out = append(out, DefinitionSummary{
			ID: d.ID, Name: d.Name, Status: d.Status,
			Criteria: len(d.Criteria), Instances: n,
		})
	}
	return out, nil
}

func (m *memoryStore) CreateInstance(_ context.Context, inst Instance) (Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.Status == "" {
		inst.Status = InstanceIncomplete
	}
	m.instances[inst.ID] = inst
	return inst, nil
}

func (m *memoryStore) GetInstance(_ context.Context, id string) (Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	return inst, nil
}

func (m *memoryStore) FindInstance(_ context.Context, defID int64, raterID, itemID string) (Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inst := range m.instances {
		if inst.DefinitionID == defID && inst.RaterID == raterID && inst.ItemID == itemID {
			return inst, nil
		}
	}
	return Instance{}, ErrNotFound
}

func (m *memoryStore) UpdateInstanceStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return ErrNotFound
	}
	inst.Status = status
	m.instances[id] = inst
	return nil
}

func (m *memoryStore) DeleteInstance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return ErrNotFound
	}
	delete(m.instances, id)
	delete(m.fillings, id)
	return nil
}

func (m *memoryStore) PutFillings(_ context.Context, instanceID string, fillings []Filling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[instanceID]; !ok {
		return ErrNotFound
	}
	out := make([]Filling, len(fillings))
	copy(out, fillings)
	m.fillings[instanceID] = out
	return nil
}

func (m *memoryStore) GetFillings(_ context.Context, instanceID string) ([]Filling, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.instances[instanceID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]Filling, len(m.fillings[instanceID]))
	copy(out, m.fillings[instanceID])
	return out, nil
}

func (m *memoryStore) CountActiveInstances(_ context.Context, defID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, inst := range m.instances {
		if inst.DefinitionID == defID && inst.Status == InstanceActive {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) MarkInstancesNeedUpdate(_ context.Context, defID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, inst := range m.instances {
		if inst.DefinitionID == defID && inst.Status == InstanceActive {
			inst.Status = InstanceNeedUpdate
			m.instances[id] = inst
			n++
		}
	}
	return n, nil
}

func cloneDefinition(d Definition) Definition {
	out := d
	out.Criteria = make([]Criterion, len(d.Criteria))
	for i, c := range d.Criteria {
		cc := c
		cc.Modules = append([]ModuleRef(nil), c.Modules...)
		cc.Levels = make([]Level, len(c.Levels))
		for j, l := range c.Levels {
			ll := l
			if l.EnrichedValue != nil {
				v := *l.EnrichedValue
				ll.EnrichedValue = &v
			}
			cc.Levels[j] = ll
		}
		out.Criteria[i] = cc
	}
	return out
}
