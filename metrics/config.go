package metrics

// Config 指标系统的配置结构体
// 用于控制指标系统的启用状态、服务标识和 Prometheus 暴露配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "user-service"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 是否启用指标收集
	// 为 false 时，metrics.New() 会返回 noop Meter，所有操作都是空操作
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName 服务名称，作为 OpenTelemetry Resource 的 service.name 属性
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// Version 服务版本，作为 OpenTelemetry Resource 的 service.version 属性
	Version string `mapstructure:"version" json:"version" yaml:"version"`

	// Port Prometheus HTTP 服务器监听的端口
	// 设置大于 0 时会启动 HTTP 服务器用于暴露 Prometheus 格式的指标
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Path Prometheus 指标的 HTTP 路径，须以 "/" 开头
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// NewDevDefaultConfig 返回适合本地开发和测试的默认配置（不暴露 HTTP 端口）
func NewDevDefaultConfig(service string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: service,
		Version:     "dev",
	}
}
