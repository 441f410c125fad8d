package ledger

import (
	"context"
	"fmt"
	"sync"

	oceanpost "github.com/driftlabs/oceanpost"
)

// Engagement is a recorded engagement event.
type Engagement struct {
	EntityID uint64
	ActorID  string
}

// Memory is an in-process ledger used by tests and the demo CLI. Each call
// site can inject a failure through the Err fields to exercise error paths.
type Memory struct {
	mu sync.Mutex

	engagements []Engagement
	pointers    map[uint64]oceanpost.ContentHash
	promoted    map[uint64]bool

	promotionRequests map[uint64]int
	flagReads         map[uint64]int

	// Injected failures, returned verbatim by the corresponding call.
	RecordEngagementErr     error
	UpdateContentPointerErr error
	ReadPromotionFlagErr    error
	RequestPromotionErr     error
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		pointers:          make(map[uint64]oceanpost.ContentHash),
		promoted:          make(map[uint64]bool),
		promotionRequests: make(map[uint64]int),
		flagReads:         make(map[uint64]int),
	}
}

// RecordEngagement implements Ledger.
func (m *Memory) RecordEngagement(_ context.Context, entityID uint64, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordEngagementErr != nil {
		return fmt.Errorf("%w: recording engagement for entity %d: %v", ErrCallFailed, entityID, m.RecordEngagementErr)
	}
	m.engagements = append(m.engagements, Engagement{EntityID: entityID, ActorID: actorID})
	return nil
}

// UpdateContentPointer implements Ledger.
func (m *Memory) UpdateContentPointer(_ context.Context, entityID uint64, hash oceanpost.ContentHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateContentPointerErr != nil {
		return fmt.Errorf("%w: updating pointer for entity %d: %v", ErrCallFailed, entityID, m.UpdateContentPointerErr)
	}
	m.pointers[entityID] = hash
	return nil
}

// ReadPromotionFlag implements Ledger.
func (m *Memory) ReadPromotionFlag(_ context.Context, entityID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadPromotionFlagErr != nil {
		return false, fmt.Errorf("%w: reading promotion flag for entity %d: %v", ErrCallFailed, entityID, m.ReadPromotionFlagErr)
	}
	m.flagReads[entityID]++
	return m.promoted[entityID], nil
}

// RequestPromotion implements Ledger. The flag is one-way: once set it is
// never cleared, and repeated requests are counted but remain no-ops.
func (m *Memory) RequestPromotion(_ context.Context, entityID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RequestPromotionErr != nil {
		return fmt.Errorf("%w: requesting promotion for entity %d: %v", ErrCallFailed, entityID, m.RequestPromotionErr)
	}
	m.promotionRequests[entityID]++
	m.promoted[entityID] = true
	return nil
}

// SetPromoted seeds the promotion flag, for tests.
func (m *Memory) SetPromoted(entityID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promoted[entityID] = true
}

// Pointer returns the recorded content-hash pointer for an entity.
func (m *Memory) Pointer(entityID uint64) oceanpost.ContentHash {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pointers[entityID]
}

// Promoted reports the promotion flag for an entity.
func (m *Memory) Promoted(entityID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promoted[entityID]
}

// PromotionRequests returns how many promotion requests were issued for an entity.
func (m *Memory) PromotionRequests(entityID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promotionRequests[entityID]
}

// FlagReads returns how many promotion-flag reads were issued for an entity.
func (m *Memory) FlagReads(entityID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flagReads[entityID]
}

// Engagements returns all recorded engagement events.
func (m *Memory) Engagements() []Engagement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Engagement(nil), m.engagements...)
}

var _ Ledger = (*Memory)(nil)
