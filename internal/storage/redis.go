package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 缓存中没有对应的键
var ErrNotFound = redis.Nil

// Redis 分析报告缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedis 创建Redis客户端并检查连接
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// ReportTTL 报告缓存时间
func (r *Redis) ReportTTL() time.Duration {
	if r.config == nil || r.config.ReportCacheHours <= 0 {
		return constants.ReportCacheDuration
	}
	return time.Duration(r.config.ReportCacheHours) * time.Hour
}

// CacheReport 缓存报告JSON
func (r *Redis) CacheReport(ctx context.Context, analysisID string, reportJSON []byte) error {
	key := fmt.Sprintf(constants.KeyAnalysisReport, analysisID)
	return r.Client.Set(ctx, key, reportJSON, r.ReportTTL()).Err()
}

// GetCachedReport 读取缓存的报告JSON，未命中时返回 ErrNotFound
func (r *Redis) GetCachedReport(ctx context.Context, analysisID string) ([]byte, error) {
	key := fmt.Sprintf(constants.KeyAnalysisReport, analysisID)
	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}
