package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	ActionChat               = "chat"
	ActionCreateConversation = "create_conversation"
	ActionSendMessage        = "send_message"
)

// Limiter decides whether a client may perform an action now. When it may not,
// the duration is a hint for Retry-After.
type Limiter interface {
	Allow(clientID, action string) (bool, time.Duration)
}

// Quota is the number of actions allowed per window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// DefaultQuotas returns the per-action quotas with chatPerMinute AI requests.
func DefaultQuotas(chatPerMinute int) map[string]Quota {
	if chatPerMinute <= 0 {
		chatPerMinute = 10
	}
	return map[string]Quota{
		ActionChat:               {Limit: chatPerMinute, Window: time.Minute},
		ActionCreateConversation: {Limit: 5, Window: 10 * time.Minute},
		ActionSendMessage:        {Limit: 30, Window: time.Minute},
	}
}

var defaultQuota = Quota{Limit: 20, Window: time.Minute}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
	now        func() time.Time
}

// NewTokenBucket creates a bucket that starts full and adds refillRate tokens
// every refillTime.
func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration, now func() time.Time) *TokenBucket {
	if now == nil {
		now = time.Now
	}
	started := now()
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: started,
		lastUsed:   started,
		now:        now,
	}
}

// Allow checks if an action is allowed and consumes a token if so
func (tb *TokenBucket) Allow() (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	tb.lastUsed = now

	intervals := int(now.Sub(tb.lastRefill) / tb.refillTime)
	if intervals > 0 {
		tb.tokens += intervals * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

// RateLimiter keeps one in-process token bucket per client and action.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	quotas  map[string]Quota
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewRateLimiter(quotas map[string]Quota, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		quotas:  quotas,
		now:     now,
	}
}

// Allow checks if a client action is allowed
func (rl *RateLimiter) Allow(clientID, action string) (bool, time.Duration) {
	key := clientID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			quota, ok := rl.quotas[action]
			if !ok {
				quota = defaultQuota
			}
			// Refill one token at a time, spread evenly over the window.
			bucket = NewTokenBucket(quota.Limit, 1, quota.Window/time.Duration(quota.Limit), rl.now)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow()
}

// Cleanup removes buckets that haven't been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastUsed)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}
