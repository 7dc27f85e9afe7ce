//go:build unix

package runner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/golinter/internal/runner"
	"github.com/stretchr/testify/require"
)

// A grandchild keeps stderr open; without the group kill Run would wait
// for WaitDelay.
func TestRunnerCancelKillsGroup(t *testing.T) {
	t.Parallel()
	path := tool(t, `sleep 30 &
echo started >&2
wait`)

	started := make(chan struct{})
	var once sync.Once
	r := runner.New().WithStderrFunc(func(_ context.Context, line string) {
		if line == "started" {
			once.Do(func() { close(started) })
		}
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	cancelled := make(chan time.Time, 1)
	go func() {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
		}
		cancelled <- time.Now()
		cancel()
	}()

	_, err := r.Run(ctx, runner.Invocation{Tool: path, Dir: t.TempDir(), Env: env()})
	require.True(t, runner.IsCancelled(err))
	require.Less(t, time.Since(<-cancelled), runner.WaitDelay)
}
