package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grinmorio/rolling/internal/app"
	"github.com/grinmorio/rolling/internal/config"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	v := config.NewViper()
	v.Set("storage.driver", config.DriverMemory)
	v.Set("server.mode", config.ModeAPI)
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestBuild_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := app.Build(ctx, memoryConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, a.Check(ctx))

	for i := 0; i < 4; i++ {
		_, err := a.Service.RollExpression(ctx, "2d6", "u1", "g1", "Alice")
		require.NoError(t, err)
	}
	_, err = a.Service.RollInitiative(ctx, 3, "u1", "g1", "Alice")
	require.NoError(t, err)

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(closeCtx))

	reports, err := a.Service.Stats(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	byType := map[string]int64{}
	for _, r := range reports {
		byType[r.RollType] = r.TotalRolls
	}
	assert.Equal(t, int64(8), byType["NORMAL"])
	assert.Equal(t, int64(1), byType["INICIATIVA"])
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Driver = "redis"
	_, err := app.Build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown storage driver "redis"`)
}

func TestHistoryService_StopDrainsAndUnblocksStart(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	a, err := app.Build(ctx, memoryConfig(t), logger)
	require.NoError(t, err)

	svc := a.HistoryService(time.Second, logger)
	started := make(chan error, 1)
	go func() { started <- svc.Start() }()

	_, err = a.Service.RollExpression(ctx, "1d20", "u1", "g1", "Alice")
	require.NoError(t, err)

	svc.Stop()
	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	reports, err := a.Service.Stats(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), reports[0].TotalRolls)
}
