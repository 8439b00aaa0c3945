package breaker

import "github.com/ceyewan/tripwire/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("breaker: invalid config")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("breaker: connector is nil")

	// ErrStoreNil 状态存储为空
	ErrStoreNil = xerrors.New("breaker: store is nil")

	// ErrServiceIDEmpty 服务标识为空
	ErrServiceIDEmpty = xerrors.New("breaker: service id is empty")

	// ErrOpenState 熔断器处于打开状态，请求被拒绝
	ErrOpenState = xerrors.New("breaker: circuit is open")

	// ErrStoreUnavailable 状态存储不可达
	ErrStoreUnavailable = xerrors.New("breaker: store unavailable")

	// ErrVersionConflict 版本冲突（并发写竞争失败）
	ErrVersionConflict = xerrors.New("breaker: version conflict")

	// ErrClosed 熔断器已关闭（资源已释放）
	ErrClosed = xerrors.New("breaker: breaker is closed")
)
