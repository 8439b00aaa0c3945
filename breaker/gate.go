package breaker

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/metrics"
	"github.com/ceyewan/tripwire/xerrors"
)

// FallbackFunc 请求被拒绝时的降级函数，返回值作为 Execute 的结果
type FallbackFunc func(ctx context.Context, serviceID string, reason Reason) error

// callGate Gate 接口实现：参数校验、降级、指标，核心决策委托给 core
type callGate struct {
	core   *core
	store  Store
	logger clog.Logger

	fallback FallbackFunc
	closed   atomic.Bool

	allowedCounter metrics.Counter
	deniedCounter  metrics.Counter
	errorCounter   metrics.Counter
}

// newGate 工厂函数内部入口
func newGate(store Store, cfg *Config, opts ...Option) (Gate, error) {
	cfg.setDefaults()
	return newGateWithOptions(store, cfg, applyOptions(opts...))
}

func newGateWithOptions(store Store, cfg *Config, opt *options) (Gate, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := deriveLogger(opt.logger)

	g := &callGate{
		core:     newCore(store, cfg, opt.clock, opt.instanceID, logger, opt.meter),
		store:    store,
		logger:   logger,
		fallback: opt.fallback,
	}

	if opt.meter != nil {
		g.allowedCounter, _ = opt.meter.Counter(MetricAllowed, "Number of allowed requests")
		g.deniedCounter, _ = opt.meter.Counter(MetricDenied, "Number of denied requests")
		g.errorCounter, _ = opt.meter.Counter(MetricErrors, "Number of breaker errors")
	}

	logger.Info("breaker created",
		clog.Int("failure_threshold", cfg.FailureThreshold),
		clog.Duration("recovery_timeout", cfg.RecoveryTimeout),
		clog.Duration("probe_lease_ttl", cfg.ProbeLeaseTTL),
		clog.String("store_policy", cfg.StorePolicy))

	return g, nil
}

func (g *callGate) Evaluate(ctx context.Context, serviceID string) (Decision, error) {
	if g.closed.Load() {
		return Decision{}, ErrClosed
	}
	if serviceID == "" {
		return Decision{}, ErrServiceIDEmpty
	}

	decision, err := g.core.evaluate(ctx, serviceID)
	if err != nil && g.errorCounter != nil {
		g.errorCounter.Inc(ctx, metrics.L(LabelService, serviceID), metrics.L(LabelOp, "evaluate"))
	}

	if decision.Allowed {
		if g.allowedCounter != nil {
			g.allowedCounter.Inc(ctx, metrics.L(LabelService, serviceID))
		}
	} else if g.deniedCounter != nil {
		g.deniedCounter.Inc(ctx,
			metrics.L(LabelService, serviceID),
			metrics.L(LabelReason, string(decision.Reason)))
	}

	g.logger.DebugContext(ctx, "breaker evaluate",
		clog.String("service_id", serviceID),
		clog.Bool("allowed", decision.Allowed),
		clog.String("state", string(decision.State)),
		clog.String("reason", string(decision.Reason)))

	return decision, err
}

func (g *callGate) Report(ctx context.Context, serviceID string, outcome Outcome, probeToken string) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if serviceID == "" {
		return ErrServiceIDEmpty
	}

	err := g.core.report(ctx, serviceID, outcome, probeToken)
	if err != nil && g.errorCounter != nil {
		g.errorCounter.Inc(ctx, metrics.L(LabelService, serviceID), metrics.L(LabelOp, "report"))
	}
	return err
}

func (g *callGate) Execute(ctx context.Context, serviceID string, fn func(ctx context.Context) error) error {
	decision, err := g.Evaluate(ctx, serviceID)
	if err != nil && !xerrors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if err != nil && !decision.Allowed {
		// 存储不可达且策略为 fail_closed：按拒绝处理
		return g.reject(ctx, serviceID, decision.Reason, err)
	}
	if !decision.Allowed {
		return g.reject(ctx, serviceID, decision.Reason, nil)
	}

	reported := false
	report := func(outcome Outcome) {
		reported = true
		if reportErr := g.Report(ctx, serviceID, outcome, decision.ProbeToken); reportErr != nil {
			g.logger.WarnContext(ctx, "failed to report call outcome",
				clog.String("service_id", serviceID),
				clog.Error(reportErr))
		}
	}
	// fn panic 时仍需上报失败，否则探测租约会一直占用到 TTL 过期
	defer func() {
		if !reported {
			report(OutcomeFailure)
		}
	}()

	callErr := fn(ctx)

	if callErr != nil {
		report(OutcomeFailure)
	} else {
		report(OutcomeSuccess)
	}
	return callErr
}

func (g *callGate) State(ctx context.Context, serviceID string) (State, error) {
	if g.closed.Load() {
		return "", ErrClosed
	}
	if serviceID == "" {
		return "", ErrServiceIDEmpty
	}
	return g.core.state(ctx, serviceID)
}

func (g *callGate) Reset(ctx context.Context, serviceID string) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if serviceID == "" {
		return ErrServiceIDEmpty
	}
	return g.core.reset(ctx, serviceID)
}

func (g *callGate) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	return g.store.Close()
}

// reject 组装拒绝结果，配置了降级函数时交由降级函数处理
func (g *callGate) reject(ctx context.Context, serviceID string, reason Reason, cause error) error {
	if g.fallback != nil {
		return g.fallback(ctx, serviceID, reason)
	}
	if cause != nil {
		return xerrors.Join(ErrOpenState, cause)
	}
	return xerrors.Wrapf(ErrOpenState, "service %s rejected (%s)", serviceID, reason)
}
