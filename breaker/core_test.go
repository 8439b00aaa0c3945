package breaker

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// 创建熔断器辅助函数
// ============================================================

func newTestGate(t *testing.T, store Store, cfg *Config) (Gate, *fakeClock) {
	t.Helper()

	if cfg == nil {
		cfg = &Config{
			FailureThreshold: 3,
			RecoveryTimeout:  10 * time.Second,
			ProbeLeaseTTL:    5 * time.Second,
		}
	}
	clock := newFakeClock()

	gate, err := New(store, cfg, WithClock(clock), WithInstanceID("test-instance"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gate.Close() })

	return gate, clock
}

func reportFailures(t *testing.T, gate Gate, serviceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, gate.Report(context.Background(), serviceID, OutcomeFailure, ""))
	}
}

// ============================================================
// 状态机基础行为
// ============================================================

func TestCore_ClosedState(t *testing.T) {
	gate, _ := newTestGate(t, newMemoryStore(), nil)
	ctx := context.Background()

	t.Run("关闭状态下请求全部放行", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			decision, err := gate.Evaluate(ctx, "svc")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)
			assert.Equal(t, StateClosed, decision.State)
			assert.Empty(t, decision.ProbeToken)
		}
	})

	t.Run("关闭状态下上报成功是幂等空操作", func(t *testing.T) {
		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, ""))
		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateClosed, state)
	})

	t.Run("失败次数未达阈值时仍然放行", func(t *testing.T) {
		reportFailures(t, gate, "svc", 2)

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("达到失败阈值后熔断", func(t *testing.T) {
		reportFailures(t, gate, "svc", 1) // 累计第 3 次

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateOpen, state)

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonOpen, decision.Reason)
	})
}

func TestCore_OpenState(t *testing.T) {
	gate, clock := newTestGate(t, newMemoryStore(), nil)
	ctx := context.Background()

	reportFailures(t, gate, "svc", 3)

	t.Run("恢复超时未到前请求被拒绝", func(t *testing.T) {
		clock.Advance(5 * time.Second)

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, StateOpen, decision.State)
		assert.Equal(t, ReasonOpen, decision.Reason)
	})

	t.Run("打开状态下的迟到上报被忽略", func(t *testing.T) {
		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, ""))
		require.NoError(t, gate.Report(ctx, "svc", OutcomeFailure, ""))

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateOpen, state)
	})

	t.Run("恢复超时已满后第一个请求获得探测令牌", func(t *testing.T) {
		clock.Advance(6 * time.Second) // 累计 11s > 10s

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, StateHalfOpen, decision.State)
		assert.NotEmpty(t, decision.ProbeToken)
	})
}

func TestCore_HalfOpenState(t *testing.T) {
	ctx := context.Background()

	// 把记录推进到半开并返回探测令牌
	trip := func(t *testing.T, gate Gate, clock *fakeClock, serviceID string) string {
		t.Helper()
		reportFailures(t, gate, serviceID, 3)
		clock.Advance(11 * time.Second)
		decision, err := gate.Evaluate(ctx, serviceID)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.NotEmpty(t, decision.ProbeToken)
		return decision.ProbeToken
	}

	t.Run("租约未到期时其他请求被拒绝", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		trip(t, gate, clock, "svc")

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, StateHalfOpen, decision.State)
		assert.Equal(t, ReasonProbePending, decision.Reason)
	})

	t.Run("探测成功后恢复关闭且计数清零", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		token := trip(t, gate, clock, "svc")

		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, token))

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateClosed, state)

		// 计数已清零：需要完整的 3 次失败才能再次熔断
		reportFailures(t, gate, "svc", 2)
		state, err = gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateClosed, state)
	})

	t.Run("探测失败后回到打开并重置恢复计时", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		token := trip(t, gate, clock, "svc")

		require.NoError(t, gate.Report(ctx, "svc", OutcomeFailure, token))

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateOpen, state)

		// 恢复计时从探测失败时刻重新起算
		clock.Advance(5 * time.Second)
		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)

		clock.Advance(6 * time.Second)
		decision, err = gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("过期或陌生令牌的上报被安全忽略", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		trip(t, gate, clock, "svc")

		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, "bogus-token"))
		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, ""))

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateHalfOpen, state)
	})

	t.Run("租约过期后可被回收重试探测", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		staleToken := trip(t, gate, clock, "svc")

		// 持有者消失，租约（TTL 5s）过期
		clock.Advance(6 * time.Second)

		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.NotEmpty(t, decision.ProbeToken)
		assert.NotEqual(t, staleToken, decision.ProbeToken)

		// 原持有者的迟到上报不再生效
		require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, staleToken))
		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateHalfOpen, state)
	})
}

// ============================================================
// 端到端场景
// ============================================================

func TestCore_RecoveryScenario(t *testing.T) {
	// 阈值 3 / 恢复超时 10s 的完整生命周期
	gate, clock := newTestGate(t, newMemoryStore(), nil)
	ctx := context.Background()

	// 连续 3 次失败触发熔断
	reportFailures(t, gate, "payment", 3)
	state, err := gate.State(ctx, "payment")
	require.NoError(t, err)
	require.Equal(t, StateOpen, state)

	// t+5s：仍然拒绝
	clock.Advance(5 * time.Second)
	decision, err := gate.Evaluate(ctx, "payment")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	// t+11s：放行探测
	clock.Advance(6 * time.Second)
	decision, err = gate.Evaluate(ctx, "payment")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.NotEmpty(t, decision.ProbeToken)

	// 探测失败：重新熔断，计时重置
	require.NoError(t, gate.Report(ctx, "payment", OutcomeFailure, decision.ProbeToken))
	state, err = gate.State(ctx, "payment")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)

	// 再过 10s：第二次探测
	clock.Advance(10 * time.Second)
	decision, err = gate.Evaluate(ctx, "payment")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.NotEmpty(t, decision.ProbeToken)

	// 探测成功：恢复关闭
	require.NoError(t, gate.Report(ctx, "payment", OutcomeSuccess, decision.ProbeToken))
	state, err = gate.State(ctx, "payment")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)
}

func TestCore_Flapping(t *testing.T) {
	// 快速 OPEN→HALF_OPEN→OPEN 振荡不应破坏计数或泄漏租约
	gate, clock := newTestGate(t, newMemoryStore(), nil)
	ctx := context.Background()

	reportFailures(t, gate, "svc", 3)

	for i := 0; i < 10; i++ {
		clock.Advance(11 * time.Second)
		decision, err := gate.Evaluate(ctx, "svc")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "round %d", i)
		require.NoError(t, gate.Report(ctx, "svc", OutcomeFailure, decision.ProbeToken))

		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		require.Equal(t, StateOpen, state, "round %d", i)
	}

	// 最终仍能正常恢复
	clock.Advance(11 * time.Second)
	decision, err := gate.Evaluate(ctx, "svc")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.NoError(t, gate.Report(ctx, "svc", OutcomeSuccess, decision.ProbeToken))

	state, err := gate.State(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)
}

// ============================================================
// 多实例并发
// ============================================================

func TestCore_ConcurrentProbeRace(t *testing.T) {
	// N 个实例共享一条记录，同时检测到恢复超时已满：
	// 恰好一个实例获得探测令牌，其余全部被拒绝
	const instances = 16

	store := newMemoryStore()
	clock := newFakeClock()
	ctx := context.Background()

	cfg := &Config{
		FailureThreshold: 3,
		RecoveryTimeout:  10 * time.Second,
		ProbeLeaseTTL:    5 * time.Second,
	}

	gates := make([]Gate, instances)
	for i := range gates {
		gate, err := New(store, cfg, WithClock(clock), WithInstanceID("instance-"+strconv.Itoa(i)))
		require.NoError(t, err)
		gates[i] = gate
	}

	reportFailures(t, gates[0], "svc", 3)
	clock.Advance(11 * time.Second)

	var wg sync.WaitGroup
	decisions := make([]Decision, instances)
	for i := range gates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			decisions[i], err = gates[i].Evaluate(ctx, "svc")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, d := range decisions {
		if d.Allowed {
			allowed++
			assert.NotEmpty(t, d.ProbeToken)
		} else {
			assert.Empty(t, d.ProbeToken)
		}
	}
	assert.Equal(t, 1, allowed, "exactly one instance should win the probe lease")

	// 所有实例对最终状态达成一致
	for _, gate := range gates {
		state, err := gate.State(ctx, "svc")
		require.NoError(t, err)
		assert.Equal(t, StateHalfOpen, state)
	}
}

func TestCore_ConcurrentFailureAccounting(t *testing.T) {
	// 并发上报失败不丢计数：阈值恰好触发一次熔断
	const reporters = 4

	store := newMemoryStore()
	clock := newFakeClock()
	cfg := &Config{
		FailureThreshold: reporters,
		RecoveryTimeout:  10 * time.Second,
		ProbeLeaseTTL:    5 * time.Second,
	}
	gate, err := New(store, cfg, WithClock(clock))
	require.NoError(t, err)
	defer gate.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Report(ctx, "svc", OutcomeFailure, ""))
		}()
	}
	wg.Wait()

	state, err := gate.State(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}

// ============================================================
// Reset 运维操作
// ============================================================

func TestCore_Reset(t *testing.T) {
	gate, _ := newTestGate(t, newMemoryStore(), nil)
	ctx := context.Background()

	reportFailures(t, gate, "svc", 3)
	state, err := gate.State(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, StateOpen, state)

	require.NoError(t, gate.Reset(ctx, "svc"))

	state, err = gate.State(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)

	decision, err := gate.Evaluate(ctx, "svc")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
