package security

import (
	"sync"
	"time"
)

// AttemptLimiter は文字列キーごとに固定ウィンドウ内の試行回数を制限する。
// 状態はプロセス内のメモリのみに保持し、永続化しない。
type AttemptLimiter struct {
	mu          sync.Mutex
	attempts    map[string]attempt
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

type attempt struct {
	count       int
	windowStart time.Time
}

// NewAttemptLimiter はAttemptLimiterを生成する。
// windowが経過するまでにmaxAttemptsを超えた試行は拒否される。
func NewAttemptLimiter(window time.Duration, maxAttempts int) *AttemptLimiter {
	return &AttemptLimiter{
		attempts:    make(map[string]attempt),
		window:      window,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// CanProceed はkeyの試行を1回記録し、上限以内であればtrueを返す。
// ウィンドウが経過していればカウントをリセットしてから記録する。
func (l *AttemptLimiter) CanProceed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.attempts[key]
	if !ok || now.Sub(a.windowStart) > l.window {
		l.attempts[key] = attempt{count: 1, windowStart: now}
		return 1 <= l.maxAttempts
	}

	a.count++
	l.attempts[key] = a
	return a.count <= l.maxAttempts
}

// Reset はkeyの試行履歴を削除する。
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}
