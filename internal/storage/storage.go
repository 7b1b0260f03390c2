package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-ats-go/internal/config"

	"github.com/rs/zerolog"
)

// Storage 聚合所有存储相关依赖，任一组件都可能为nil
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值缓存
	Redis *Redis
}

// NewStorage 按配置初始化各存储组件；部分失败只记录警告，全部失败才返回错误
func NewStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var err error
	var initErrors []string

	if cfg.MySQL.Host != "" {
		s.MySQL, err = NewMySQL(&cfg.MySQL, log)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		log.Info().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(&cfg.MinIO, log)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, log)
		if err != nil {
			log.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := s.setupTopology(&cfg.RabbitMQ); err != nil {
			log.Warn().Err(err).Msg("声明RabbitMQ拓扑失败")
		}
	}

	if len(initErrors) > 0 && s.MySQL == nil && s.Redis == nil && s.MinIO == nil && s.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		log.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return s, nil
}

// setupTopology 声明分析事件exchange，配置了队列时一并绑定
func (s *Storage) setupTopology(cfg *config.RabbitMQConfig) error {
	if err := s.RabbitMQ.EnsureExchange(cfg.AnalysisEventsExchange, "topic", true); err != nil {
		return err
	}
	if cfg.CompletedQueue == "" {
		return nil
	}
	if err := s.RabbitMQ.EnsureQueue(cfg.CompletedQueue, true); err != nil {
		return err
	}
	return s.RabbitMQ.BindQueue(cfg.CompletedQueue, cfg.AnalysisEventsExchange, cfg.CompletedRoutingKey)
}

// Health 各组件可用性，未配置的组件不出现在结果中
func (s *Storage) Health(ctx context.Context) map[string]bool {
	status := make(map[string]bool)
	if s == nil {
		return status
	}
	if s.MySQL != nil {
		status["mysql"] = s.MySQL.Ping(ctx) == nil
	}
	if s.Redis != nil {
		status["redis"] = s.Redis.Ping(ctx) == nil
	}
	if s.MinIO != nil {
		status["minio"] = s.MinIO.Ping(ctx) == nil
	}
	if s.RabbitMQ != nil {
		status["rabbitmq"] = s.RabbitMQ.Ping(ctx) == nil
	}
	return status
}

// Close 关闭所有连接
func (s *Storage) Close(log zerolog.Logger) {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
