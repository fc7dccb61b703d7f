package mpexplain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelFor_VisitsEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ n, workers int }{
		{1, 4}, {5, 1}, {10, 3}, {97, 8}, {3, 10},
	} {
		visits := make([]int32, tc.n)
		err := parallelFor(context.Background(), tc.n, tc.workers, func(i int) error {
			atomic.AddInt32(&visits[i], 1)
			return nil
		})
		require.NoError(t, err)
		for i, v := range visits {
			assert.EqualValues(t, 1, v, "n=%d workers=%d index=%d", tc.n, tc.workers, i)
		}
	}
}

func TestParallelFor_ZeroItems(t *testing.T) {
	called := false
	err := parallelFor(context.Background(), 0, 4, func(int) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestParallelFor_ContiguousRanges(t *testing.T) {
	// Each worker walks its own range in ascending order.
	var mu sync.Mutex
	var order []int
	err := parallelFor(context.Background(), 20, 1, func(i int) error {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestParallelFor_Error(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := parallelFor(context.Background(), 1000, 1, func(i int) error {
		calls.Add(1)
		if i == 5 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 6, calls.Load(), "work stops after the first error")
}

func TestParallelFor_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := parallelFor(ctx, 10, 2, func(int) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestParallelFor_CanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	err := parallelFor(ctx, 1000, 4, func(i int) error {
		if calls.Add(1) == 50 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls.Load(), int32(1000))
}

func TestProgressTracker(t *testing.T) {
	var seen []int
	var mu sync.Mutex
	p := newProgressTracker(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 30, total)
		seen = append(seen, done)
	}, 30)

	require.NoError(t, parallelFor(context.Background(), 30, 4, func(int) error {
		p.tick()
		return nil
	}))
	require.Len(t, seen, 30)
	assert.ElementsMatch(t, func() []int {
		want := make([]int, 30)
		for i := range want {
			want[i] = i + 1
		}
		return want
	}(), seen, "every count from 1 to total is reported once")
}

func TestProgressTracker_Nil(t *testing.T) {
	p := newProgressTracker(nil, 3)
	assert.NotPanics(t, p.tick)
}
