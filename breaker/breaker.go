// Package breaker 提供了熔断组件，支持单机和分布式两种模式。
//
// breaker 是 Tripwire 治理层的核心组件，它提供了：
//   - 统一的 Gate 接口，屏蔽单机和分布式差异
//   - 单机模式：基于内存的状态存储
//   - 分布式模式：基于 Redis 或 etcd 的共享状态存储，多实例对同一服务
//     观察到一致的熔断决策
//   - 经典三态状态机（CLOSED / OPEN / HALF_OPEN），计数阈值 + 固定恢复超时
//   - 半开探测租约：同一时刻最多一个探测请求在途，租约带 TTL，持有者崩溃后
//     可被其他实例回收
//   - 乐观并发控制：所有状态变更通过版本化的条件写入完成，无全局锁
//   - 开箱即用的 Gin 中间件和 gRPC 拦截器
//   - 与基础组件（日志、指标）的深度集成
//
// ## 基本使用
//
//	// 单机模式
//	gate, _ := breaker.NewStandalone(&breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	}, breaker.WithLogger(logger))
//	defer gate.Close()
//
//	err := gate.Execute(ctx, "payment-service", func(ctx context.Context) error {
//	    return callDownstream(ctx)
//	})
//	if xerrors.Is(err, breaker.ErrOpenState) {
//	    // 请求被熔断拒绝
//	}
//
// ## 分布式模式
//
//	redisConn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	defer redisConn.Close()
//
//	gate, _ := breaker.NewRedis(redisConn, &breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	}, breaker.WithLogger(logger))
//
// ## 手动评估 / 上报
//
//	decision, err := gate.Evaluate(ctx, "payment-service")
//	if err != nil || !decision.Allowed {
//	    return fallback()
//	}
//	callErr := callDownstream(ctx)
//	outcome := breaker.OutcomeSuccess
//	if callErr != nil {
//	    outcome = breaker.OutcomeFailure
//	}
//	_ = gate.Report(ctx, "payment-service", outcome, decision.ProbeToken)
//
// ## 可观测性
//
// 通过注入 Logger 和 Meter 实现统一的日志和指标收集：
//
//	gate, _ := breaker.NewStandalone(cfg,
//	    breaker.WithLogger(logger),
//	    breaker.WithMeter(meter),
//	)
package breaker

import (
	"context"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/connector"
)

// ========================================
// 类型定义 (Type Definitions)
// ========================================

// State 熔断器状态
type State string

const (
	// StateClosed 关闭状态：请求正常通过，统计失败次数
	StateClosed State = "closed"

	// StateOpen 打开状态：请求被立即拒绝，不触达下游
	StateOpen State = "open"

	// StateHalfOpen 半开状态：仅允许一个持有探测租约的请求通过
	StateHalfOpen State = "half_open"
)

// Outcome 一次受保护调用的结果
type Outcome string

const (
	// OutcomeSuccess 调用成功
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure 调用失败（超时、错误、显式失败信号）
	OutcomeFailure Outcome = "failure"
)

// Reason 请求被拒绝的原因
type Reason string

const (
	// ReasonOpen 熔断器处于打开状态且恢复超时未到
	ReasonOpen Reason = "open"

	// ReasonProbePending 已有其他请求持有探测租约
	ReasonProbePending Reason = "probe_pending"

	// ReasonLostRace 并发竞争失败（如探测租约被其他实例抢先获取）
	ReasonLostRace Reason = "lost_race"

	// ReasonStoreUnavailable 状态存储不可达且策略为 fail_closed
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision 一次准入评估的结果
type Decision struct {
	// Allowed 请求是否允许通过
	Allowed bool

	// State 评估时观察到的熔断器状态。
	// 存储不可达、按降级策略给出决策时为空
	State State

	// Reason 拒绝原因（Allowed 为 true 时为空）
	Reason Reason

	// ProbeToken 探测令牌。仅当本次评估获得了半开探测租约时非空，
	// 调用方必须在 Report 时原样带回
	ProbeToken string
}

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Gate 熔断器核心接口
type Gate interface {
	// Evaluate 评估一次对 serviceID 的请求是否允许通过（非阻塞）
	//
	// 返回的 Decision 始终有效；error 仅在系统性故障时非空
	// （如状态存储不可达），此时 Decision 由降级策略决定。
	//
	// 使用示例:
	//
	//	decision, err := gate.Evaluate(ctx, "payment-service")
	//	if !decision.Allowed {
	//	    // 请求被拒绝，decision.Reason 说明原因
	//	}
	Evaluate(ctx context.Context, serviceID string) (Decision, error)

	// Report 上报一次受保护调用的结果
	//
	// probeToken 对普通请求传空字符串；对探测请求传 Evaluate
	// 返回的 ProbeToken。持有过期令牌的迟到上报会被安全忽略。
	Report(ctx context.Context, serviceID string, outcome Outcome, probeToken string) error

	// Execute 执行受保护调用（Evaluate + fn + Report 的组合）
	//
	// 请求被拒绝时返回 ErrOpenState（配置了 Fallback 时返回
	// Fallback 的结果）；否则返回 fn 的错误。
	Execute(ctx context.Context, serviceID string, fn func(ctx context.Context) error) error

	// State 查询 serviceID 当前的熔断器状态（只读，不触发状态迁移）
	State(ctx context.Context, serviceID string) (State, error)

	// Reset 将 serviceID 强制恢复到关闭状态（运维操作）
	Reset(ctx context.Context, serviceID string) error

	// Close 释放资源。外部注入的连接由 Connector 管理，不在此关闭
	Close() error
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 基于给定的状态存储创建熔断器
// 这是最底层的工厂函数，NewStandalone / NewRedis / NewEtcd 均基于它构建
func New(store Store, cfg *Config, opts ...Option) (Gate, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return newGate(store, cfg, opts...)
}

// NewStandalone 创建单机熔断器（内存状态存储）
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 使用示例:
//
//	gate, _ := breaker.NewStandalone(&breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	}, breaker.WithLogger(logger))
func NewStandalone(cfg *Config, opts ...Option) (Gate, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return newGate(newMemoryStore(), cfg, opts...)
}

// NewRedis 创建分布式熔断器（Redis 状态存储）
//
// 多个进程对同一 serviceID 共享一条熔断记录，观察到一致的状态迁移。
//
// 使用示例:
//
//	redisConn, _ := connector.NewRedis(redisConfig)
//	gate, _ := breaker.NewRedis(redisConn, &breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	}, breaker.WithLogger(logger))
func NewRedis(redisConn connector.RedisConnector, cfg *Config, opts ...Option) (Gate, error) {
	if redisConn == nil {
		return nil, ErrConnectorNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()

	opt := applyOptions(opts...)

	store := newRedisStore(redisConn.GetClient(), cfg.Prefix, deriveLogger(opt.logger))
	return newGateWithOptions(store, cfg, opt)
}

// NewEtcd 创建分布式熔断器（etcd 状态存储）
//
// 使用示例:
//
//	etcdConn, _ := connector.NewEtcd(etcdConfig)
//	gate, _ := breaker.NewEtcd(etcdConn, &breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	}, breaker.WithLogger(logger))
func NewEtcd(etcdConn connector.EtcdConnector, cfg *Config, opts ...Option) (Gate, error) {
	if etcdConn == nil {
		return nil, ErrConnectorNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()

	opt := applyOptions(opts...)

	store := newEtcdStore(etcdConn.GetClient(), cfg.Prefix, deriveLogger(opt.logger))
	return newGateWithOptions(store, cfg, opt)
}

// deriveLogger 派生组件 Logger（添加 component 字段）
func deriveLogger(logger clog.Logger) clog.Logger {
	if logger == nil {
		return clog.Discard()
	}
	return logger.With(clog.String("component", "breaker"))
}
