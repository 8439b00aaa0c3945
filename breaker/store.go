package breaker

import "context"

// Store 熔断记录的状态存储抽象。
//
// 实现必须保证 CompareAndSwap 的原子性：读到的 Version 与写入之间
// 若有其他写入发生，本次写入必须失败并返回 ErrVersionConflict。
// 这是组件唯一的并发控制手段，所有状态迁移都经由它线性化。
type Store interface {
	// Read 读取 serviceID 的熔断记录
	//
	// 记录不存在时返回初始记录（closed / Version 0），不是错误；
	// 存储不可达时返回 ErrStoreUnavailable。
	Read(ctx context.Context, serviceID string) (*Record, error)

	// CompareAndSwap 条件写入：仅当存储中记录的当前版本等于
	// expectedVersion 时写入 rec（expectedVersion 为 0 表示记录
	// 尚不存在）。写入成功后 rec.Version 被更新为新版本，
	// 新版本严格大于 expectedVersion。
	//
	// 版本不匹配返回 ErrVersionConflict，存储不可达返回
	// ErrStoreUnavailable。
	CompareAndSwap(ctx context.Context, serviceID string, expectedVersion int64, rec *Record) error

	// Delete 删除 serviceID 的记录（Reset 运维操作使用）
	Delete(ctx context.Context, serviceID string) error

	// Close 释放存储自身持有的资源
	Close() error
}
