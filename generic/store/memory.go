// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements distribution.Store and generic.DivisionOrderStore.
// Every write holds the lock across check and write, so Save is a true
// compare-and-swap.
type Memory struct {
	mu            sync.RWMutex
	distributions map[generic.DistributionID]distribution.Distribution
	byKey         map[key]generic.DistributionID
	events        map[generic.DistributionID][]distribution.Event
	interests     map[generic.DivisionOrderID]generic.DivisionOrderInterest
}

type key struct {
	WellID          generic.WellID
	PartnerID       generic.PartnerID
	DivisionOrderID generic.DivisionOrderID
	Month           string
}

func keyOf(k distribution.Key) key {
	return key{
		WellID:          k.WellID,
		PartnerID:       k.PartnerID,
		DivisionOrderID: k.DivisionOrderID,
		Month:           k.ProductionMonth.String(),
	}
}

func NewMemory() *Memory {
	return &Memory{
		distributions: make(map[generic.DistributionID]distribution.Distribution),
		byKey:         make(map[key]generic.DistributionID),
		events:        make(map[generic.DistributionID][]distribution.Event),
		interests:     make(map[generic.DivisionOrderID]generic.DivisionOrderInterest),
	}
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func (m *Memory) Create(_ context.Context, d distribution.Distribution, events ...distribution.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(d.Key())
	if _, exists := m.distributions[d.ID]; exists {
		return generic.ErrDuplicateDistribution
	}
	if _, exists := m.byKey[k]; exists {
		return generic.ErrDuplicateDistribution
	}

	m.distributions[d.ID] = d
	m.byKey[k] = d.ID
	m.events[d.ID] = append(m.events[d.ID], events...)
	return nil
}

func (m *Memory) Load(_ context.Context, id generic.DistributionID) (distribution.Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.distributions[id]
	if !ok {
		return distribution.Distribution{}, &generic.NotFoundError{Kind: "distribution", ID: string(id)}
	}
	return d, nil
}

// Save checks and writes under one lock.
func (m *Memory) Save(_ context.Context, d distribution.Distribution, expectedVersion int, events ...distribution.Event) error {
	if err := distribution.CheckSave(d, expectedVersion); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.distributions[d.ID]
	if !ok {
		return &generic.NotFoundError{Kind: "distribution", ID: string(d.ID)}
	}
	if stored.Version != expectedVersion {
		return &generic.VersionConflictError{ID: d.ID, Expected: expectedVersion, Actual: stored.Version}
	}

	m.distributions[d.ID] = d
	m.events[d.ID] = append(m.events[d.ID], events...)
	return nil
}

func (m *Memory) FindByKey(_ context.Context, k distribution.Key) (distribution.Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byKey[keyOf(k)]
	if !ok {
		return distribution.Distribution{}, &generic.NotFoundError{Kind: "distribution", ID: k.String()}
	}
	return m.distributions[id], nil
}

func (m *Memory) ListByWell(_ context.Context, wellID generic.WellID, month generic.ProductionMonth) ([]distribution.Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []distribution.Distribution
	for _, d := range m.distributions {
		if d.WellID != wellID {
			continue
		}
		if !month.IsZero() && !d.ProductionMonth.Equal(month) {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ProductionMonth.Equal(result[j].ProductionMonth) {
			return result[i].ProductionMonth.Before(result[j].ProductionMonth)
		}
		return result[i].PartnerID < result[j].PartnerID
	})
	return result, nil
}

func (m *Memory) Events(_ context.Context, id generic.DistributionID) ([]distribution.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.distributions[id]; !ok {
		return nil, &generic.NotFoundError{Kind: "distribution", ID: string(id)}
	}
	result := make([]distribution.Event, len(m.events[id]))
	copy(result, m.events[id])
	return result, nil
}

// =============================================================================
// DIVISION ORDERS
// =============================================================================

func (m *Memory) SaveInterest(_ context.Context, interest generic.DivisionOrderInterest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interests[interest.DivisionOrderID] = interest
	return nil
}

func (m *Memory) ListActiveInterests(_ context.Context, wellID generic.WellID, asOf time.Time) ([]generic.DivisionOrderInterest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.DivisionOrderInterest
	for _, i := range m.interests {
		if i.WellID == wellID && i.ActiveAt(asOf) {
			result = append(result, i)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].PartnerID != result[b].PartnerID {
			return result[a].PartnerID < result[b].PartnerID
		}
		return result[a].DivisionOrderID < result[b].DivisionOrderID
	})
	return result, nil
}

func (m *Memory) ListWells(_ context.Context) ([]generic.WellID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[generic.WellID]bool)
	var wells []generic.WellID
	for _, i := range m.interests {
		if !seen[i.WellID] {
			seen[i.WellID] = true
			wells = append(wells, i.WellID)
		}
	}
	sort.Slice(wells, func(a, b int) bool { return wells[a] < wells[b] })
	return wells, nil
}

// Reset drops everything. Used by the demo scenario loader.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distributions = make(map[generic.DistributionID]distribution.Distribution)
	m.byKey = make(map[key]generic.DistributionID)
	m.events = make(map[generic.DistributionID][]distribution.Event)
	m.interests = make(map[generic.DivisionOrderID]generic.DivisionOrderInterest)
	return nil
}

// Compile-time checks
var (
	_ distribution.Store         = (*Memory)(nil)
	_ generic.DivisionOrderStore = (*Memory)(nil)
)
