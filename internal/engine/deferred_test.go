package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DrainEmpty(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.DrainAll(context.Background()))
}

func TestQueue_DrainRunsEveryTask(t *testing.T) {
	q := NewQueue()
	var ran atomic.Int32

	for i := 0; i < 20; i++ {
		addr := fmt.Sprintf("api.Fn%d", i)
		require.NoError(t, q.Register(addr, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	assert.Equal(t, 20, q.Len())

	require.NoError(t, q.DrainAll(context.Background()))
	assert.Equal(t, int32(20), ran.Load())
}

func TestQueue_AggregatesFailuresWithoutCancellingSiblings(t *testing.T) {
	q := NewQueue()
	var completed atomic.Int32

	// Failing tasks finish at staggered times so aggregation cannot depend
	// on completion order.
	delays := map[string]time.Duration{
		"api.Bad1": 30 * time.Millisecond,
		"api.Bad2": 0,
		"api.Bad3": 10 * time.Millisecond,
	}
	for addr, delay := range delays {
		addr, delay := addr, delay
		require.NoError(t, q.Register(addr, func(ctx context.Context) error {
			time.Sleep(delay)
			return errors.New("bundle failed")
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Register(fmt.Sprintf("api.Good%d", i), func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			completed.Add(1)
			return nil
		}))
	}

	err := q.DrainAll(context.Background())
	require.Error(t, err)

	// All siblings ran to completion despite the failures
	assert.Equal(t, int32(5), completed.Load())

	// Exactly the failing declarations are attributed
	assert.Contains(t, err.Error(), "3 deferred build(s) failed")
	for addr := range delays {
		assert.Contains(t, err.Error(), addr)
	}
	assert.NotContains(t, err.Error(), "api.Good0")
}

func TestQueue_DrainsExactlyOnce(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Register("api.Fn", func(ctx context.Context) error {
		return errors.New("boom")
	}))

	err := q.DrainAll(context.Background())
	require.Error(t, err)

	// A second drain must not resurface the earlier failure.
	err = q.DrainAll(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "already drained")
}

func TestQueue_RegisterAfterDrainRejected(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.DrainAll(context.Background()))

	err := q.Register("api.Late", func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.Late")
}
