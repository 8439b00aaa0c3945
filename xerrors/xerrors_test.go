package xerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("包装 nil 返回 nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("包装后保留错误链", func(t *testing.T) {
		base := New("base error")
		wrapped := Wrap(base, "doing something")
		require.Error(t, wrapped)
		assert.True(t, Is(wrapped, base))
		assert.Contains(t, wrapped.Error(), "doing something")
	})
}

func TestWrapf(t *testing.T) {
	base := New("base error")
	wrapped := Wrapf(base, "key: %s", "user:123")
	require.Error(t, wrapped)
	assert.True(t, Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "user:123")
}

func TestWithCode(t *testing.T) {
	t.Run("提取错误码", func(t *testing.T) {
		base := New("store unreachable")
		coded := WithCode(base, "store_unavailable")
		assert.Equal(t, "store_unavailable", GetCode(coded))
		assert.True(t, Is(coded, base))
	})

	t.Run("无错误码返回空串", func(t *testing.T) {
		assert.Equal(t, "", GetCode(New("plain")))
	})

	t.Run("错误码穿透多层包装", func(t *testing.T) {
		base := New("boom")
		err := Wrap(WithCode(base, "conflict"), "outer")
		assert.Equal(t, "conflict", GetCode(err))
	})
}
