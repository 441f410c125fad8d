// Package promote decides when an entity has earned its one-way status
// promotion and requests it from the ledger.
package promote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driftlabs/oceanpost/ledger"
	"github.com/driftlabs/oceanpost/telemetry"
	"github.com/driftlabs/oceanpost/tracker"
)

// Thresholds are the engagement levels an entity must reach before a
// promotion is requested.
type Thresholds struct {
	Likes    int64
	Comments int64
}

// DefaultThresholds returns the standard promotion thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Likes: 100, Comments: 4}
}

// Evaluator reads counters from the tracker and requests promotion from
// the ledger once thresholds are crossed. Thresholds are checked locally;
// the ledger only records the resulting flag. Promotion is irreversible
// and owned by the ledger; the evaluator only decides when to ask.
type Evaluator struct {
	tracker    *tracker.Tracker
	ledger     ledger.Ledger
	thresholds Thresholds
	logger     *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThresholds overrides the default promotion thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) {
		e.thresholds = t
	}
}

// WithLogger sets the logger for promotion decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator.
func New(t *tracker.Tracker, l ledger.Ledger, opts ...Option) *Evaluator {
	e := &Evaluator{
		tracker:    t,
		ledger:     l,
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks the entity's counters against the thresholds and, when
// both are met, requests promotion from the ledger. Below-threshold
// entities cause no ledger traffic at all, and an already promoted entity
// is an idempotent no-op, so repeated evaluation is always safe.
func (e *Evaluator) Evaluate(ctx context.Context, entityID uint64) error {
	st, err := e.tracker.Require(entityID)
	if err != nil {
		return fmt.Errorf("evaluating promotion: %w", err)
	}

	if st.LikeCount < e.thresholds.Likes || st.CommentCount < e.thresholds.Comments {
		e.logger.Debug("entity below promotion thresholds",
			"entity_id", entityID,
			"likes", st.LikeCount,
			"comments", st.CommentCount,
		)
		return nil
	}

	promoted, err := e.ledger.ReadPromotionFlag(ctx, entityID)
	if err != nil {
		return fmt.Errorf("evaluating promotion for entity %d: %w", entityID, err)
	}
	if promoted {
		return nil
	}

	if err := e.ledger.RequestPromotion(ctx, entityID); err != nil {
		return fmt.Errorf("evaluating promotion for entity %d: %w", entityID, err)
	}

	telemetry.RecordPromotion(ctx)
	e.logger.Info("entity promoted",
		"entity_id", entityID,
		"likes", st.LikeCount,
		"comments", st.CommentCount,
	)
	return nil
}
