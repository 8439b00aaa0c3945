package breaker

import "time"

// Clock 时间源抽象，测试中可注入假时钟
type Clock interface {
	Now() time.Time
}

// systemClock 系统时钟
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
