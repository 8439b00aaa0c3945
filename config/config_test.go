package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
breaker:
  failure_threshold: 3
  recovery_timeout: 10s
  prefix: "demo:"
`)

	loader, err := New(&Config{Name: "config", Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	t.Run("Get 返回原始值", func(t *testing.T) {
		assert.Equal(t, 3, loader.Get("breaker.failure_threshold"))
		assert.Equal(t, "demo:", loader.Get("breaker.prefix"))
	})

	t.Run("UnmarshalKey 反序列化子树", func(t *testing.T) {
		var cfg struct {
			FailureThreshold int           `mapstructure:"failure_threshold"`
			RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
			Prefix           string        `mapstructure:"prefix"`
		}
		require.NoError(t, loader.UnmarshalKey("breaker", &cfg))
		assert.Equal(t, 3, cfg.FailureThreshold)
		assert.Equal(t, 10*time.Second, cfg.RecoveryTimeout)
		assert.Equal(t, "demo:", cfg.Prefix)
	})
}

func TestLoader_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "breaker:\n  prefix: from-file\n")

	t.Setenv("TRIPWIRE_BREAKER_PREFIX", "from-env")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "from-env", loader.Get("breaker.prefix"))
}

func TestLoader_MissingFile(t *testing.T) {
	loader, err := New(&Config{Paths: []string{t.TempDir()}})
	require.NoError(t, err)

	// 没有配置文件时仅依赖环境变量，不报错
	assert.NoError(t, loader.Load(context.Background()))
}

func TestLoader_Watch(t *testing.T) {
	loader, err := New(nil)
	require.NoError(t, err)

	t.Run("空 key 报错", func(t *testing.T) {
		_, err := loader.Watch(context.Background(), "")
		assert.ErrorIs(t, err, ErrKeyEmpty)
	})

	t.Run("context 取消后通道关闭", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := loader.Watch(ctx, "breaker.prefix")
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel should be closed")
		case <-time.After(time.Second):
			t.Fatal("watch channel not closed after cancel")
		}
	})
}
