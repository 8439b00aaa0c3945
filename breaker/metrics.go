package breaker

// Metrics 指标常量定义
const (
	// MetricAllowed 允许通过的请求数 (Counter)
	MetricAllowed = "breaker_allowed_total"

	// MetricDenied 被拒绝的请求数 (Counter)
	MetricDenied = "breaker_denied_total"

	// MetricTransitions 状态迁移次数 (Counter)
	MetricTransitions = "breaker_transitions_total"

	// MetricConflicts 条件写入竞争失败次数 (Counter)
	MetricConflicts = "breaker_conflicts_total"

	// MetricErrors 熔断器错误数 (Counter)
	MetricErrors = "breaker_errors_total"

	// LabelService 服务标识标签
	LabelService = "service_id"

	// LabelState 目标状态标签 (closed/open/half_open)
	LabelState = "state"

	// LabelReason 拒绝原因标签
	LabelReason = "reason"

	// LabelOp 操作标签 (evaluate/report)
	LabelOp = "op"
)
