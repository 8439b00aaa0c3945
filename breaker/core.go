package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/metrics"
	"github.com/ceyewan/tripwire/xerrors"
)

// 条件写入竞争失败后的重试上限。
// evaluate 失败一次即说明别的实例做出了权威决策，重读一次后从新状态
// 出发即可；report 携带的是必须落账的调用结果，多给几次机会。
const (
	evaluateAttempts = 2
	reportAttempts   = 4
)

// core 熔断状态机：组合状态存储、失败计账器与探测协调器，
// 所有状态迁移都通过记录版本上的单次条件写入完成。
type core struct {
	store  Store
	cfg    *Config
	clock  Clock
	acct   accountant
	probe  prober
	logger clog.Logger

	transitionCounter metrics.Counter
	conflictCounter   metrics.Counter
}

func newCore(store Store, cfg *Config, clock Clock, instanceID string, logger clog.Logger, meter metrics.Meter) *core {
	c := &core{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		acct:   accountant{threshold: cfg.FailureThreshold},
		probe:  prober{instanceID: instanceID, leaseTTL: cfg.ProbeLeaseTTL},
		logger: logger,
	}

	if meter != nil {
		c.transitionCounter, _ = meter.Counter(MetricTransitions, "Number of breaker state transitions")
		c.conflictCounter, _ = meter.Counter(MetricConflicts, "Number of lost conditional writes")
	}

	return c
}

// evaluate 评估请求准入。
// 竞争失败不是错误：重读一次后按记录的新状态给出一致的决策。
func (c *core) evaluate(ctx context.Context, serviceID string) (Decision, error) {
	var rec *Record

	for attempt := 0; attempt < evaluateAttempts; attempt++ {
		var err error
		rec, err = c.store.Read(ctx, serviceID)
		if err != nil {
			return c.storeFailureDecision(), xerrors.Wrap(err, "evaluate")
		}

		now := c.clock.Now()

		switch rec.State {
		case StateClosed:
			return Decision{Allowed: true, State: StateClosed}, nil

		case StateOpen:
			if !rec.recoveryDue(now, c.cfg.RecoveryTimeout) {
				return Decision{State: StateOpen, Reason: ReasonOpen}, nil
			}
			// 恢复超时已满，竞争进入半开并获取探测租约
			next := rec.clone()
			token := c.probe.grant(next, now)
			if err := c.write(ctx, serviceID, rec.Version, next, "recovery timeout elapsed"); err != nil {
				if xerrors.Is(err, ErrVersionConflict) {
					continue
				}
				return c.storeFailureDecision(), xerrors.Wrap(err, "evaluate")
			}
			return Decision{Allowed: true, State: StateHalfOpen, ProbeToken: token}, nil

		case StateHalfOpen:
			if rec.probeLeaseActive(now) {
				return Decision{State: StateHalfOpen, Reason: ReasonProbePending}, nil
			}
			// 租约已过期：持有者消失，回收租约重试探测
			next := rec.clone()
			token := c.probe.grant(next, now)
			if err := c.write(ctx, serviceID, rec.Version, next, "expired probe lease reclaimed"); err != nil {
				if xerrors.Is(err, ErrVersionConflict) {
					continue
				}
				return c.storeFailureDecision(), xerrors.Wrap(err, "evaluate")
			}
			return Decision{Allowed: true, State: StateHalfOpen, ProbeToken: token}, nil

		default:
			return c.storeFailureDecision(), xerrors.Wrapf(ErrStoreUnavailable, "unknown state %q", rec.State)
		}
	}

	// 两次竞争都落败：权威决策已由他人做出，按保守方向拒绝
	return Decision{State: rec.State, Reason: ReasonLostRace}, nil
}

// report 上报调用结果并推进状态机
func (c *core) report(ctx context.Context, serviceID string, outcome Outcome, probeToken string) error {
	var lastErr error

	for attempt := 0; attempt < reportAttempts; attempt++ {
		rec, err := c.store.Read(ctx, serviceID)
		if err != nil {
			return xerrors.Wrap(err, "report")
		}

		now := c.clock.Now()
		next := rec.clone()
		var transition string

		switch rec.State {
		case StateClosed:
			if outcome == OutcomeSuccess {
				// 关闭状态下成功无需落账，幂等
				return nil
			}
			if c.acct.recordFailure(next, now) {
				transition = "failure threshold reached"
			}

		case StateOpen:
			// 迟到的上报：状态已经熔断，结果不再有参考价值
			return nil

		case StateHalfOpen:
			if !c.probe.owns(rec, probeToken, now) {
				// 过期或陌生令牌的上报安全忽略
				return nil
			}
			if outcome == OutcomeSuccess {
				c.acct.reset(next, now)
				transition = "probe succeeded"
			} else {
				next.State = StateOpen
				next.LastStateChangeTime = now
				next.LastFailureTime = now
				next.ProbeOwner = ""
				next.ProbeExpiry = time.Time{}
				transition = "probe failed"
			}

		default:
			return xerrors.Wrapf(ErrStoreUnavailable, "unknown state %q", rec.State)
		}

		if err := c.write(ctx, serviceID, rec.Version, next, transition); err != nil {
			if xerrors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return xerrors.Wrap(err, "report")
		}
		return nil
	}

	return xerrors.Wrap(lastErr, "report: retries exhausted")
}

// state 只读查询当前状态，不触发任何迁移
func (c *core) state(ctx context.Context, serviceID string) (State, error) {
	rec, err := c.store.Read(ctx, serviceID)
	if err != nil {
		return "", err
	}
	return rec.State, nil
}

// reset 运维操作：删除记录，下次访问时惰性重建为关闭状态
func (c *core) reset(ctx context.Context, serviceID string) error {
	if err := c.store.Delete(ctx, serviceID); err != nil {
		return xerrors.Wrap(err, "reset")
	}
	c.logger.InfoContext(ctx, "breaker record reset", clog.String("service_id", serviceID))
	return nil
}

// write 执行条件写入，统一处理迁移日志与指标
func (c *core) write(ctx context.Context, serviceID string, expectedVersion int64, next *Record, transition string) error {
	err := c.store.CompareAndSwap(ctx, serviceID, expectedVersion, next)
	if err != nil {
		if xerrors.Is(err, ErrVersionConflict) {
			if c.conflictCounter != nil {
				c.conflictCounter.Inc(ctx, metrics.L(LabelService, serviceID))
			}
			c.logger.DebugContext(ctx, "lost conditional write, re-reading",
				clog.String("service_id", serviceID),
				clog.Int64("expected_version", expectedVersion))
		}
		return err
	}

	if transition != "" {
		if c.transitionCounter != nil {
			c.transitionCounter.Inc(ctx,
				metrics.L(LabelService, serviceID),
				metrics.L(LabelState, string(next.State)))
		}
		c.logger.InfoContext(ctx, "breaker state transition",
			clog.String("service_id", serviceID),
			clog.String("state", string(next.State)),
			clog.String("cause", transition),
			clog.Int("failure_count", next.FailureCount),
			clog.Int64("version", next.Version))
	}
	return nil
}

// storeFailureDecision 状态存储不可达时按降级策略给出本地决策。
// 此时无法观察到真实状态，State 保持为空
func (c *core) storeFailureDecision() Decision {
	if c.cfg.StorePolicy == StorePolicyFailOpen {
		return Decision{Allowed: true, Reason: ReasonStoreUnavailable}
	}
	return Decision{Reason: ReasonStoreUnavailable}
}
