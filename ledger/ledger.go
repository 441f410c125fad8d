// Package ledger defines the contract for the external authoritative
// engagement ledger: the system of record for engagement events, each
// entity's content-hash pointer, and the one-way promotion flag.
package ledger

import (
	"context"
	"errors"

	oceanpost "github.com/driftlabs/oceanpost"
)

// ErrCallFailed is returned when a ledger call cannot be completed.
var ErrCallFailed = errors.New("ledger call failed")

// Ledger is the contract the core depends on. All calls block until the
// ledger has finalized the operation; no partial or pending state is
// surfaced to callers.
type Ledger interface {
	// RecordEngagement records an engagement event by an actor against an entity.
	RecordEngagement(ctx context.Context, entityID uint64, actorID string) error

	// UpdateContentPointer sets the entity's stored content-hash pointer.
	UpdateContentPointer(ctx context.Context, entityID uint64, hash oceanpost.ContentHash) error

	// ReadPromotionFlag reports whether the entity has been promoted.
	ReadPromotionFlag(ctx context.Context, entityID uint64) (bool, error)

	// RequestPromotion marks the entity promoted. The transition is one-way;
	// the ledger ignores repeated requests for an already promoted entity.
	RequestPromotion(ctx context.Context, entityID uint64) error
}
