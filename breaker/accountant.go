package breaker

import "time"

// accountant 失败计账器：在记录副本上应用关闭状态下的调用结果，
// 计数递增与阈值判断在同一次条件写入内生效，多实例下不会多算或漏算。
type accountant struct {
	threshold int
}

// recordFailure 在关闭状态的记录副本上登记一次失败。
// 达到阈值时迁移到打开状态并返回 true；调用方负责随后的条件写入。
func (a accountant) recordFailure(rec *Record, now time.Time) (tripped bool) {
	rec.FailureCount++
	rec.LastFailureTime = now

	if rec.FailureCount >= a.threshold {
		rec.State = StateOpen
		rec.LastStateChangeTime = now
		rec.ProbeOwner = ""
		rec.ProbeExpiry = time.Time{}
		return true
	}
	return false
}

// reset 将记录副本恢复到初始关闭状态（进入 closed 时清零计数）
func (a accountant) reset(rec *Record, now time.Time) {
	rec.State = StateClosed
	rec.FailureCount = 0
	rec.LastStateChangeTime = now
	rec.ProbeOwner = ""
	rec.ProbeExpiry = time.Time{}
}
