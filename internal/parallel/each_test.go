package parallel_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/golinter/internal/parallel"
	"github.com/stretchr/testify/require"
)

func TestEach(t *testing.T) {
	t.Parallel()

	errOdd := errors.New("odd")
	f := func(_ context.Context, d time.Duration) error {
		time.Sleep(d)
		if (d/time.Second)%2 == 1 {
			return errOdd
		}
		return nil
	}
	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}

	var testCases = []struct {
		scenario string
		given    int
		then     time.Duration
	}{
		{"limit 1", 1, 18 * time.Second},
		{"limit 2", 2, 12 * time.Second},
		{"limit 10", 10, 10 * time.Second},
		{"limit 0 is serial", 0, 18 * time.Second},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				start := time.Now()
				errs := parallel.Each(t.Context(), tt.given, input, f)
				require.Equal(t, tt.then, time.Since(start))
				require.Equal(t, []error{errOdd, nil, errOdd, nil}, errs)
			})
		})
	}
}

func TestEachCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	errs := parallel.Each(ctx, 1, []int{1, 2}, func(context.Context, int) error {
		called = true
		return nil
	})
	require.False(t, called)
	require.Equal(t, []error{context.Canceled, context.Canceled}, errs)
}
