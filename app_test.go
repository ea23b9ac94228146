package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"screedflow/config"
)

func TestStartSweepSkipsOverlappingRuns(t *testing.T) {
	ctx := context.Background()
	a, err := buildApp(ctx, config.Config{
		StoreBackend:  config.BackendMemory,
		SchemaVersion: "4.0",
		AITimeout:     time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	before := len(a.repo.Notifications("", true))

	var wg sync.WaitGroup
	a.sweepRunning.Store(true)
	assert.False(t, a.startSweep(ctx, &wg))
	wg.Wait()
	assert.Len(t, a.repo.Notifications("", true), before)

	a.sweepRunning.Store(false)
	assert.True(t, a.startSweep(ctx, &wg))
	wg.Wait()
	assert.False(t, a.sweepRunning.Load())
	assert.Greater(t, len(a.repo.Notifications("", true)), before)
}
