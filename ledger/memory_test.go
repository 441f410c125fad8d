package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryPointerUpdates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpdateContentPointer(ctx, 1, "H0"))
	require.NoError(t, m.UpdateContentPointer(ctx, 1, "H1"))
	require.NoError(t, m.UpdateContentPointer(ctx, 2, "H9"))

	require.Equal(t, "H1", m.Pointer(1).String())
	require.Equal(t, "H9", m.Pointer(2).String())
}

func TestMemoryPromotionIsOneWay(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	promoted, err := m.ReadPromotionFlag(ctx, 1)
	require.NoError(t, err)
	require.False(t, promoted)

	require.NoError(t, m.RequestPromotion(ctx, 1))
	require.NoError(t, m.RequestPromotion(ctx, 1))

	promoted, err = m.ReadPromotionFlag(ctx, 1)
	require.NoError(t, err)
	require.True(t, promoted)
	require.Equal(t, 2, m.PromotionRequests(1))
}

func TestMemoryRecordEngagement(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.RecordEngagement(ctx, 5, "actor-a"))
	require.NoError(t, m.RecordEngagement(ctx, 5, "actor-b"))

	events := m.Engagements()
	require.Len(t, events, 2)
	require.Equal(t, Engagement{EntityID: 5, ActorID: "actor-a"}, events[0])
}

func TestMemoryInjectedFailures(t *testing.T) {
	m := NewMemory()
	m.UpdateContentPointerErr = errors.New("rpc timeout")
	ctx := context.Background()

	err := m.UpdateContentPointer(ctx, 1, "H1")
	require.ErrorIs(t, err, ErrCallFailed)
	require.True(t, m.Pointer(1).IsZero())
}
