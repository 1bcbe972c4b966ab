package sender

import (
	"Otf_go/pkg/tools"
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer 两次发送之间的固定间隔
type Pacer interface {
	// Wait 至少阻塞 d；d <= 0 时立即返回
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer 基于 timer 的尽力而为休眠，没有上限保证
type SleepPacer struct{}

func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newByteLimiter kbps 限速（逐包节拍），突发上限为一个最大包
func newByteLimiter(maxRateKbps uint32, payloadSize int) *rate.Limiter {
	if maxRateKbps == 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(tools.KbpsToBytesPerSec(maxRateKbps)), payloadSize)
}
