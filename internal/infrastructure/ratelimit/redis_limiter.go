package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sulestate/pkg/logger"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter counts actions per client in fixed windows shared by every
// replica. It fails closed when Redis is unreachable.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	quotas map[string]Quota
	now    func() time.Time
}

func NewRedisLimiter(addr, password, prefix string, quotas map[string]Quota) (*RedisLimiter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	for action, quota := range quotas {
		if quota.Limit <= 0 || quota.Window <= 0 {
			return nil, fmt.Errorf("rate limiter quota for %s requires positive limit and window", action)
		}
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "sulestate:ratelimit"
	}
	return &RedisLimiter{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		quotas: quotas,
		now:    time.Now,
	}, nil
}

func (l *RedisLimiter) Allow(clientID, action string) (bool, time.Duration) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		clientID = "unknown"
	}
	quota, ok := l.quotas[action]
	if !ok {
		quota = defaultQuota
	}

	windowMs := quota.Window.Milliseconds()
	nowMs := l.now().UTC().UnixMilli()
	slot := nowMs / windowMs
	retryAfter := time.Duration((slot+1)*windowMs-nowMs) * time.Millisecond

	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, action, clientID, slot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		logger.Error("Rate limiter redis error for %s: %v", action, err)
		return false, retryAfter
	}
	if count > int64(quota.Limit) {
		return false, retryAfter
	}
	return true, 0
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
