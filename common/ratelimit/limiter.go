package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/finvault/affiliate/common/logger"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// RateLimiter provides fixed-window rate limiting using Redis + Lua
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
	log    *logger.Logger
}

// NewRateLimiter creates a new rate limiter with the embedded Lua script
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		log:    log,
	}
}

// CheckGlobalLimit checks the service-wide rate limit
func (r *RateLimiter) CheckGlobalLimit(ctx context.Context, limit int64, windowSec int) (*Result, error) {
	return r.checkLimit(ctx, "rate_limit:global", limit, windowSec)
}

// CheckUserLimit checks the rate limit for a specific user
func (r *RateLimiter) CheckUserLimit(ctx context.Context, uid int64, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:uid:%d", uid)
	return r.checkLimit(ctx, key, limit, windowSec)
}

// checkLimit executes the rate limit Lua script atomically
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	result, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		r.log.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Result array: {allowed, current_count, limit, retry_after}
	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	out := &Result{
		Allowed:           resultArray[0].(int64) == 1,
		CurrentCount:      resultArray[1].(int64),
		Limit:             resultArray[2].(int64),
		RetryAfterSeconds: resultArray[3].(int64),
	}

	if !out.Allowed {
		r.log.Warn("rate limit exceeded",
			"key", key,
			"current", out.CurrentCount,
			"limit", limit,
			"retry_after", out.RetryAfterSeconds)
	}

	return out, nil
}
