package ledger

import (
	"context"
	"time"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/telemetry"
)

// Instrumented wraps a Ledger with metrics recording.
type Instrumented struct {
	ledger Ledger
}

// NewInstrumented creates a new instrumented ledger wrapper.
func NewInstrumented(l Ledger) *Instrumented {
	return &Instrumented{ledger: l}
}

func (il *Instrumented) RecordEngagement(ctx context.Context, entityID uint64, actorID string) error {
	start := time.Now()
	err := il.ledger.RecordEngagement(ctx, entityID, actorID)
	telemetry.RecordLedgerCall(ctx, "recordEngagement", outcomeFromError(err), time.Since(start))
	return err
}

func (il *Instrumented) UpdateContentPointer(ctx context.Context, entityID uint64, hash oceanpost.ContentHash) error {
	start := time.Now()
	err := il.ledger.UpdateContentPointer(ctx, entityID, hash)
	telemetry.RecordLedgerCall(ctx, "setContentPointer", outcomeFromError(err), time.Since(start))
	return err
}

func (il *Instrumented) ReadPromotionFlag(ctx context.Context, entityID uint64) (bool, error) {
	start := time.Now()
	flag, err := il.ledger.ReadPromotionFlag(ctx, entityID)
	telemetry.RecordLedgerCall(ctx, "promoted", outcomeFromError(err), time.Since(start))
	return flag, err
}

func (il *Instrumented) RequestPromotion(ctx context.Context, entityID uint64) error {
	start := time.Now()
	err := il.ledger.RequestPromotion(ctx, entityID)
	telemetry.RecordLedgerCall(ctx, "promote", outcomeFromError(err), time.Since(start))
	return err
}

func outcomeFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ Ledger = (*Instrumented)(nil)
