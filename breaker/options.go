package breaker

import (
	"os"
	"strconv"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	clock      Clock
	instanceID string
	fallback   FallbackFunc
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClock 设置时间源（测试中注入假时钟）
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithInstanceID 设置实例标识，用作探测令牌前缀
// （默认：hostname/pid）
func WithInstanceID(id string) Option {
	return func(o *options) {
		o.instanceID = id
	}
}

// WithFallback 设置请求被拒绝时的降级函数
func WithFallback(fn FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fn
	}
}

// applyOptions 应用选项并填充默认值
func applyOptions(opts ...Option) *options {
	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	if opt.clock == nil {
		opt.clock = systemClock{}
	}
	if opt.instanceID == "" {
		opt.instanceID = defaultInstanceID()
	}
	return opt
}

func defaultInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return hostname + "/" + strconv.Itoa(os.Getpid())
}
