package cache

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan models.CartSummary) models.CartSummary {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("aucun résumé reçu")
		return models.CartSummary{}
	}
}

func exerciseCartEvents(t *testing.T, events CartEvents) {
	t.Helper()
	ctx := context.Background()

	ch, cancel, err := events.Subscribe(ctx, "client-1")
	require.NoError(t, err)
	defer cancel()

	other, cancelOther, err := events.Subscribe(ctx, "client-2")
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, events.Publish(ctx, "client-1", models.CartSummary{Subtotal: 10, ItemCount: 2}))

	got := receive(t, ch)
	assert.Equal(t, 10.0, got.Subtotal)
	assert.Equal(t, 2, got.ItemCount)

	select {
	case s := <-other:
		t.Fatalf("résumé inattendu pour client-2: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCartEvents(t *testing.T) {
	events := NewMemoryCartEvents()
	exerciseCartEvents(t, events)

	// tous les abonnements sont libérés
	assert.Empty(t, events.subs)
	require.NoError(t, events.Publish(context.Background(), "client-1", models.CartSummary{}))
}

func TestRedisCartEvents(t *testing.T) {
	client, _ := newTestRedis(t)
	exerciseCartEvents(t, NewRedisCartEvents(client))
}
