package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ResultsInIndexOrder(t *testing.T) {
	out := make([]int, 10)
	errs := Run(context.Background(), 10, 3, func(_ context.Context, i int) error {
		// later indices finish first
		time.Sleep(time.Duration(10-i) * time.Millisecond)
		out[i] = i * i
		if i == 4 {
			return errors.New("boom")
		}
		return nil
	})

	require.Len(t, errs, 10)
	for i := range out {
		assert.Equal(t, i*i, out[i])
		if i == 4 {
			assert.EqualError(t, errs[i], "boom")
		} else {
			assert.NoError(t, errs[i])
		}
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	Run(context.Background(), 20, 2, func(_ context.Context, _ int) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	errs := Run(ctx, 5, 1, func(_ context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 1 {
			cancel()
		}
		return nil
	})

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	for _, err := range errs[2:] {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRun_Empty(t *testing.T) {
	assert.Empty(t, Run(context.Background(), 0, 4, nil))
}
