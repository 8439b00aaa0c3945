// Package config 提供统一的配置加载能力，基于 Viper 实现。
//
// 特性：
//   - YAML/JSON 配置文件加载，支持多个搜索路径
//   - 环境变量覆盖（前缀 + 下划线风格，如 TRIPWIRE_BREAKER_PREFIX）
//   - 热更新：监听配置文件变化并通知订阅者
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{
//	    Name:  "config",
//	    Paths: []string{".", "./config"},
//	})
//	if err := loader.Load(ctx); err != nil {
//	    return err
//	}
//
//	var cfg AppConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//	    return err
//	}
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "breaker.failure_threshold")
//	for event := range ch {
//	    fmt.Printf("配置变化: %s = %v\n", event.Key, event.Value)
//	}
package config

import (
	"context"
	"strings"
	"time"
)

// Loader 配置加载器核心接口
type Loader interface {
	// Load 加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 订阅指定 key 的变更事件，context 取消时停止监听
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Timestamp time.Time
}

// Config 加载器配置
type Config struct {
	// Name 配置文件名称，不含扩展名（默认："config"）
	Name string

	// Paths 配置文件搜索路径（默认：[".", "./config"]）
	Paths []string

	// FileType 配置文件类型（默认："yaml"）
	FileType string

	// EnvPrefix 环境变量前缀（默认："TRIPWIRE"）
	EnvPrefix string
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "TRIPWIRE"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建配置加载器
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return newLoader(cfg, opt.logger), nil
}
