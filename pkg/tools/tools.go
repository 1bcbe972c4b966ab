package tools

import "time"

func DivCeil(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// Mbps 按经过时间计算平均速率，elapsed 为 0 时返回 0
func Mbps(bytes uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return (float64(bytes) * 8.0) / elapsed.Seconds() / 1_000_000.0
}

// KbpsToBytesPerSec kbps → B/s
func KbpsToBytesPerSec(kbps uint32) float64 {
	return float64(kbps) * 1000.0 / 8.0
}
