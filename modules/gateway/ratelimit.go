package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default message rate limit: burst of 20, refilling 10 per second.
const (
	defaultBurstSize      = 20
	defaultMessagesPerSec = 10
)

// SendLimiter throttles sendMessage traffic per user. Forget releases
// any per-user state when the connection goes away.
type SendLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
	Forget(ctx context.Context, userID string)
}

// newSendLimiter picks the limiter backend: Redis sliding window when
// REDIS_ADDR is set, otherwise an in-process token bucket.
func newSendLimiter() SendLimiter {
	perSec := defaultMessagesPerSec
	if v := os.Getenv("CHAT_MSG_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			perSec = parsed
		}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		log.Printf("[gateway] using Redis rate limiter at %s", addr)
		return newRedisLimiter(client, perSec, time.Second)
	}
	return newBucketLimiter(defaultBurstSize, perSec)
}

// bucket is one user's token bucket.
type bucket struct {
	tokens     int
	lastRefill time.Time
}

// bucketLimiter is a per-user token bucket limiter. now is injectable
// for deterministic tests.
type bucketLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate int // tokens per second
	now        func() time.Time
}

var _ SendLimiter = (*bucketLimiter)(nil)

func newBucketLimiter(maxTokens, refillRate int) *bucketLimiter {
	return &bucketLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		now:        time.Now,
	}
}

func (l *bucketLimiter) Allow(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: now}
		l.buckets[userID] = b
	}

	elapsed := now.Sub(b.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * l.refillRate
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > l.maxTokens {
			b.tokens = l.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

func (l *bucketLimiter) Forget(_ context.Context, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, userID)
}

// redisLimiter enforces a sliding window over a Redis sorted set, so
// the limit holds across gateway instances.
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	script *redis.Script
}

var _ SendLimiter = (*redisLimiter)(nil)

func newRedisLimiter(client *redis.Client, limit int, window time.Duration) *redisLimiter {
	// Atomic check-and-record; INCR provides unique member values.
	script := redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local limit = tonumber(ARGV[3])
		local window_ms = tonumber(ARGV[4])

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
		local current = redis.call('ZCARD', key)

		if current < limit then
			local counter = redis.call('INCR', key .. ':counter')
			redis.call('ZADD', key, now, now .. ':' .. counter)
			local expire_seconds = math.ceil(window_ms / 1000)
			redis.call('EXPIRE', key, expire_seconds)
			redis.call('EXPIRE', key .. ':counter', expire_seconds)
			return 1
		end
		return 0
	`)
	return &redisLimiter{client: client, limit: limit, window: window, script: script}
}

func (l *redisLimiter) key(userID string) string {
	return "ridechat:msgrate:" + userID
}

func (l *redisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	now := time.Now()
	result, err := l.script.Run(
		ctx, l.client, []string{l.key(userID)},
		now.UnixMilli(), now.Add(-l.window).UnixMilli(), l.limit, l.window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis script error: %w", err)
	}
	return result == 1, nil
}

func (l *redisLimiter) Forget(ctx context.Context, userID string) {
	key := l.key(userID)
	if err := l.client.Del(ctx, key, key+":counter").Err(); err != nil {
		log.Printf("[gateway] failed to reset rate limit for %s: %v", userID, err)
	}
}
