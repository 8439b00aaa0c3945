package config

import "github.com/ceyewan/tripwire/xerrors"

// 错误定义
var (
	// ErrLoadFailed 配置加载失败
	ErrLoadFailed = xerrors.New("config: load failed")

	// ErrUnmarshalFailed 配置反序列化失败
	ErrUnmarshalFailed = xerrors.New("config: unmarshal failed")

	// ErrKeyEmpty 配置 key 为空
	ErrKeyEmpty = xerrors.New("config: key is empty")
)
