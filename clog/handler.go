package clog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// newHandler 创建并返回一个适配 clog 配置的 slog.Handler（内部使用）
func newHandler(config *Config) (slog.Handler, error) {
	w, err := resolveWriter(config)
	if err != nil {
		return nil, err
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		AddSource: config.AddSource,
		Level:     slogLevel(level),
	}

	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}

// resolveWriter 根据配置创建输出 writer
func resolveWriter(config *Config) (io.Writer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

// slogLevel 将 clog.Level 映射为 slog.Level
func slogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		// Fatal 在 slog 中没有显式常量，使用 Error 的更高值
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}
