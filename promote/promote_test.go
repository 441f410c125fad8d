package promote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftlabs/oceanpost/ledger"
	"github.com/driftlabs/oceanpost/tracker"
)

func TestEvaluateBelowThresholdsIsLedgerSilent(t *testing.T) {
	tr := tracker.New()
	led := ledger.NewMemory()
	e := New(tr, led)

	tr.Load(1, "H0", 50, 2)

	require.NoError(t, e.Evaluate(context.Background(), 1))

	// A below-threshold entity causes no ledger traffic at all.
	require.Zero(t, led.FlagReads(1))
	require.Zero(t, led.PromotionRequests(1))
	require.False(t, led.Promoted(1))
}

func TestEvaluatePromotesAtThresholds(t *testing.T) {
	tr := tracker.New()
	led := ledger.NewMemory()
	e := New(tr, led)

	tr.Load(1, "H0", 100, 4)

	require.NoError(t, e.Evaluate(context.Background(), 1))
	require.True(t, led.Promoted(1))
	require.Equal(t, 1, led.PromotionRequests(1))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tr := tracker.New()
	led := ledger.NewMemory()
	e := New(tr, led)

	tr.Load(1, "H0", 250, 40)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Evaluate(ctx, 1))
	}

	// The first call promotes; the rest read the flag and stop.
	require.Equal(t, 1, led.PromotionRequests(1))
	require.Equal(t, 3, led.FlagReads(1))
}

func TestEvaluateSkipsAlreadyPromoted(t *testing.T) {
	tr := tracker.New()
	led := ledger.NewMemory()
	led.SetPromoted(7)
	e := New(tr, led)

	tr.Load(7, "H0", 100, 4)

	require.NoError(t, e.Evaluate(context.Background(), 7))
	require.Zero(t, led.PromotionRequests(7))
}

func TestEvaluateCustomThresholds(t *testing.T) {
	tr := tracker.New()
	led := ledger.NewMemory()
	e := New(tr, led, WithThresholds(Thresholds{Likes: 10, Comments: 1}))

	tr.Load(1, "H0", 10, 0)
	require.NoError(t, e.Evaluate(context.Background(), 1))
	require.False(t, led.Promoted(1))

	_, err := tr.IncrementComments(1)
	require.NoError(t, err)
	require.NoError(t, e.Evaluate(context.Background(), 1))
	require.True(t, led.Promoted(1))
}

func TestEvaluateRequiresLoadedEntity(t *testing.T) {
	e := New(tracker.New(), ledger.NewMemory())

	err := e.Evaluate(context.Background(), 404)
	require.ErrorIs(t, err, tracker.ErrNotLoaded)
}

func TestEvaluatePropagatesLedgerErrors(t *testing.T) {
	ctx := context.Background()
	tr := tracker.New()
	led := ledger.NewMemory()
	e := New(tr, led)

	tr.Load(1, "H0", 100, 4)

	led.ReadPromotionFlagErr = errors.New("rpc timeout")
	err := e.Evaluate(ctx, 1)
	require.ErrorIs(t, err, ledger.ErrCallFailed)
	require.Zero(t, led.PromotionRequests(1))

	led.ReadPromotionFlagErr = nil
	led.RequestPromotionErr = errors.New("out of gas")
	err = e.Evaluate(ctx, 1)
	require.ErrorIs(t, err, ledger.ErrCallFailed)
	require.False(t, led.Promoted(1))

	// Once the ledger recovers the promotion goes through.
	led.RequestPromotionErr = nil
	require.NoError(t, e.Evaluate(ctx, 1))
	require.True(t, led.Promoted(1))
}
