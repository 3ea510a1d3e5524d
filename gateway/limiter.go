package gateway

import (
	"sync"
	"time"
)

// RateLimiter 在每次 REST 调用前阻塞等待配额。
type RateLimiter interface {
	Wait()
}

// TokenBucketLimiter 按固定速率补充配额。Bybit v5 对下单/仓位接口按 UID
// 限频（约 10 req/s），默认跑在 5 req/s 留出重试余量。
type TokenBucketLimiter struct {
	mu     sync.Mutex
	rate   float64 // 每秒补充的配额
	burst  float64 // 配额上限
	level  float64
	filled time.Time
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  float64(burst),
		level:  float64(burst),
		filled: time.Now(),
	}
}

// Wait blocks until one unit of quota is available, then consumes it.
func (l *TokenBucketLimiter) Wait() {
	for {
		l.mu.Lock()
		now := time.Now()
		l.level += now.Sub(l.filled).Seconds() * l.rate
		l.filled = now
		if l.level > l.burst {
			l.level = l.burst
		}
		if l.level >= 1 {
			l.level--
			l.mu.Unlock()
			return
		}
		wait := time.Duration((1 - l.level) / l.rate * float64(time.Second))
		l.mu.Unlock()
		time.Sleep(wait)
	}
}

// NopLimiter 用于测试或无限流场景。
type NopLimiter struct{}

func (NopLimiter) Wait() {}
