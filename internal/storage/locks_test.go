package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLocks_ReleasedAfterUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	for i := 0; i < 1000; i++ {
		key := ClientKey(KeyCart, fmt.Sprintf("client-%d", i))
		require.NoError(t, s.WithLock(ctx, key, func(context.Context) error { return nil }))
	}
	assert.Zero(t, s.locks.size())
}

func TestKeyLocks_SharedWhileContended(t *testing.T) {
	locks := newKeyLocks()

	unlock := locks.lock("k")
	assert.Equal(t, 1, locks.size())

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		release := locks.lock("k")
		close(acquired)
		release()
	}()

	// l'attente garde l'entrée vivante après le premier déverrouillage
	select {
	case <-acquired:
		t.Fatal("verrou obtenu alors qu'il est détenu")
	default:
	}
	unlock()
	<-acquired
	wg.Wait()
	assert.Zero(t, locks.size())
}
