// Package testkit 提供测试基础设施：通用测试依赖与外部服务连接助手。
// 依赖外部服务的助手在服务不可达时跳过测试，保证单元测试可以离线运行。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/metrics"
)

// NewLogger 返回一个用于测试的 logger
// 输出到开发环境格式，适合本地调试
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig("tripwire"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter
// 使用 Discard 模式，不实际输出指标
func NewMeter() metrics.Meter {
	return metrics.Discard()
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的 serviceID 或键后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
