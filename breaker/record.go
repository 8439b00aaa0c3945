package breaker

import "time"

// Record 一个 serviceID 对应的熔断记录，是状态存储中的最小一致性单元。
//
// 不变式：
//   - Version 严格单调递增，每次成功写入 +1
//   - FailureCount 仅在 State 为 closed 时有意义
//   - ProbeOwner / ProbeExpiry 仅在 State 为 half_open 时非零
type Record struct {
	// State 当前状态
	State State `json:"state"`

	// FailureCount 关闭状态下的连续失败计数
	FailureCount int `json:"failure_count"`

	// LastFailureTime 最近一次失败的时间
	LastFailureTime time.Time `json:"last_failure_time"`

	// LastStateChangeTime 最近一次状态迁移的时间，
	// 打开状态的恢复超时以它为基准
	LastStateChangeTime time.Time `json:"last_state_change_time"`

	// ProbeOwner 当前探测租约持有者的令牌（半开状态）
	ProbeOwner string `json:"probe_owner"`

	// ProbeExpiry 探测租约到期时间（半开状态）
	ProbeExpiry time.Time `json:"probe_expiry"`

	// Version 乐观并发控制版本号，由存储维护
	Version int64 `json:"version"`
}

// newRecord 返回一条初始记录（关闭状态，版本 0 表示尚未持久化）
func newRecord() *Record {
	return &Record{State: StateClosed}
}

// clone 返回记录的副本，状态迁移在副本上计算后再条件写入
func (r *Record) clone() *Record {
	c := *r
	return &c
}

// probeLeaseActive 判断探测租约在 now 时刻是否仍然有效
func (r *Record) probeLeaseActive(now time.Time) bool {
	return r.ProbeOwner != "" && now.Before(r.ProbeExpiry)
}

// recoveryDue 判断打开状态在 now 时刻是否已满恢复超时
func (r *Record) recoveryDue(now time.Time, timeout time.Duration) bool {
	return !now.Before(r.LastStateChangeTime.Add(timeout))
}
