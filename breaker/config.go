package breaker

import (
	"time"

	"github.com/ceyewan/tripwire/xerrors"
)

// 降级策略：状态存储不可达时本地的准入决策
const (
	// StorePolicyFailClosed 存储不可达时拒绝请求（默认，保护下游）
	StorePolicyFailClosed = "fail_closed"

	// StorePolicyFailOpen 存储不可达时放行请求（偏可用性）
	StorePolicyFailOpen = "fail_open"
)

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败阈值，关闭状态下累计到该值即熔断
	// （默认：5，必须 >= 1）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// RecoveryTimeout 恢复超时，打开状态持续该时长后允许探测
	// （默认：30s，必须 > 0）
	RecoveryTimeout time.Duration `json:"recovery_timeout" yaml:"recovery_timeout" mapstructure:"recovery_timeout"`

	// ProbeLeaseTTL 探测租约有效期，超过该时长未上报的探测视为失败，
	// 租约可被其他请求回收（默认：RecoveryTimeout 的一半，最小 1s）
	ProbeLeaseTTL time.Duration `json:"probe_lease_ttl" yaml:"probe_lease_ttl" mapstructure:"probe_lease_ttl"`

	// StorePolicy 状态存储不可达时的降级策略
	// 可选值：fail_closed（默认）、fail_open
	StorePolicy string `json:"store_policy" yaml:"store_policy" mapstructure:"store_policy"`

	// Prefix 存储键前缀（默认："breaker:"）
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.ProbeLeaseTTL == 0 {
		c.ProbeLeaseTTL = c.RecoveryTimeout / 2
		if c.ProbeLeaseTTL < time.Second {
			c.ProbeLeaseTTL = time.Second
		}
	}
	if c.StorePolicy == "" {
		c.StorePolicy = StorePolicyFailClosed
	}
	if c.Prefix == "" {
		c.Prefix = "breaker:"
	}
}

// validate 校验配置
func (c *Config) validate() error {
	if c.FailureThreshold < 1 {
		return xerrors.Wrapf(ErrInvalidConfig, "failure_threshold must be >= 1, got %d", c.FailureThreshold)
	}
	if c.RecoveryTimeout <= 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "recovery_timeout must be positive, got %v", c.RecoveryTimeout)
	}
	if c.ProbeLeaseTTL <= 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "probe_lease_ttl must be positive, got %v", c.ProbeLeaseTTL)
	}
	if c.StorePolicy != StorePolicyFailClosed && c.StorePolicy != StorePolicyFailOpen {
		return xerrors.Wrapf(ErrInvalidConfig, "unknown store_policy %q", c.StorePolicy)
	}
	return nil
}
