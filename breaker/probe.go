package breaker

import (
	"time"

	"github.com/google/uuid"
)

// prober 探测协调器：负责探测令牌的发放与租约的生命周期。
// 租约的授予与 OPEN→HALF_OPEN 的状态迁移在同一次条件写入内完成，
// 天然保证同一时刻至多一个有效持有者。
type prober struct {
	instanceID string
	leaseTTL   time.Duration
}

// mintToken 生成全局唯一的探测令牌，instanceID 前缀便于排查归属
func (p prober) mintToken() string {
	return p.instanceID + "/" + uuid.NewString()
}

// grant 在记录副本上授予探测租约（进入或接管半开状态）。
// 返回发放的令牌，随条件写入一同生效。
func (p prober) grant(rec *Record, now time.Time) string {
	token := p.mintToken()
	if rec.State != StateHalfOpen {
		rec.State = StateHalfOpen
		rec.LastStateChangeTime = now
	}
	rec.ProbeOwner = token
	rec.ProbeExpiry = now.Add(p.leaseTTL)
	return token
}

// owns 判断令牌是否为记录当前有效的租约持有者
func (p prober) owns(rec *Record, token string, now time.Time) bool {
	return token != "" && token == rec.ProbeOwner && rec.probeLeaseActive(now)
}
