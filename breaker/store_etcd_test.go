package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/testkit"
)

func newTestEtcdStore(t *testing.T) *etcdStore {
	t.Helper()

	conn := testkit.GetEtcdConnector(t)
	prefix := "test/breaker/" + testkit.NewID() + "/"
	return newEtcdStore(conn.GetClient(), prefix, clog.Discard())
}

func TestEtcdStore_Integration(t *testing.T) {
	store := newTestEtcdStore(t)
	ctx := context.Background()

	t.Run("不存在的记录返回初始状态", func(t *testing.T) {
		rec, err := store.Read(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateClosed, rec.State)
		assert.Zero(t, rec.Version)
	})

	t.Run("条件写入与读取往返", func(t *testing.T) {
		serviceID := testkit.NewID()
		now := time.Now().Truncate(time.Millisecond)

		rec := &Record{
			State:               StateOpen,
			FailureCount:        5,
			LastFailureTime:     now,
			LastStateChangeTime: now,
		}
		require.NoError(t, store.CompareAndSwap(ctx, serviceID, 0, rec))
		require.Positive(t, rec.Version)

		got, err := store.Read(ctx, serviceID)
		require.NoError(t, err)
		assert.Equal(t, StateOpen, got.State)
		assert.Equal(t, 5, got.FailureCount)
		assert.True(t, got.LastFailureTime.Equal(now))
		assert.Equal(t, rec.Version, got.Version)
	})

	t.Run("版本不匹配时拒绝写入", func(t *testing.T) {
		serviceID := testkit.NewID()
		rec := newRecord()
		require.NoError(t, store.CompareAndSwap(ctx, serviceID, 0, rec))

		err := store.CompareAndSwap(ctx, serviceID, 0, newRecord())
		assert.ErrorIs(t, err, ErrVersionConflict)

		err = store.CompareAndSwap(ctx, serviceID, rec.Version+100, newRecord())
		assert.ErrorIs(t, err, ErrVersionConflict)

		// 正确版本可以继续推进
		next := rec.clone()
		require.NoError(t, store.CompareAndSwap(ctx, serviceID, rec.Version, next))
		assert.Greater(t, next.Version, rec.Version)
	})

	t.Run("删除后记录重新初始化", func(t *testing.T) {
		serviceID := testkit.NewID()
		require.NoError(t, store.CompareAndSwap(ctx, serviceID, 0, newRecord()))
		require.NoError(t, store.Delete(ctx, serviceID))

		rec, err := store.Read(ctx, serviceID)
		require.NoError(t, err)
		assert.Zero(t, rec.Version)
	})
}

func TestEtcdStore_GateLifecycle(t *testing.T) {
	store := newTestEtcdStore(t)
	clock := newFakeClock()

	gate, err := New(store, &Config{
		FailureThreshold: 3,
		RecoveryTimeout:  10 * time.Second,
		ProbeLeaseTTL:    5 * time.Second,
	}, WithClock(clock))
	require.NoError(t, err)
	defer gate.Close()

	ctx := context.Background()
	serviceID := testkit.NewID()

	reportFailures(t, gate, serviceID, 3)
	state, err := gate.State(ctx, serviceID)
	require.NoError(t, err)
	require.Equal(t, StateOpen, state)

	clock.Advance(11 * time.Second)
	decision, err := gate.Evaluate(ctx, serviceID)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	require.NoError(t, gate.Report(ctx, serviceID, OutcomeFailure, decision.ProbeToken))
	state, err = gate.State(ctx, serviceID)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}
