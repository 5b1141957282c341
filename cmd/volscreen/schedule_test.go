package main

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/volscreen/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunOnStart_ShutdownWaitsForRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	sched, err := scheduler.New("0 30 21 * * 1-5", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		// the run still has cleanup to do after cancellation
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	sched.Start(ctx)
	runOnStart(ctx, &wg, sched)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("startup run never began")
	}

	cancel()
	sched.Stop()
	wg.Wait()

	assert.True(t, finished.Load())
}
