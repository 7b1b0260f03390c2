package ratelimit

import (
	"context"
	"time"
)

// TextGenerator 生成式文本接口
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RateLimitedGenerator 对生成式调用进行限流的代理
type RateLimitedGenerator struct {
	original    TextGenerator
	rateLimiter *TokenBucket
}

// NewRateLimitedGenerator 创建限流代理。
// modelQPM 为模型的QPM上限，实际使用其90%作为安全值；<=0 时使用默认值30。
func NewRateLimitedGenerator(original TextGenerator, modelQPM int, maxRetries int, retryWait time.Duration) *RateLimitedGenerator {
	qpm := 30
	if modelQPM > 0 {
		qpm = int(float64(modelQPM) * 0.9)
		if qpm <= 0 {
			qpm = 1
		}
	}
	if retryWait <= 0 {
		retryWait = time.Second
	}

	return &RateLimitedGenerator{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2).WithRetryPolicy(retryWait, maxRetries),
	}
}

// Generate 代理Generate方法，增加限流和重试逻辑
func (rl *RateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var response string
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, prompt)
		return genErr
	})
	return response, err
}
