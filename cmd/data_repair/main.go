package main

import (
	"context"
	"os"
	"sync"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/outbox"
	"resume-ats-go/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// 配置并发数
const (
	concurrency = 5
	batchSize   = 50
)

func main() {
	var (
		configPath   string
		requeue      bool
		olderThan    time.Duration
		warmCache    bool
		warmUser     string
		warmMaxPages int
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.BoolVar(&requeue, "requeue-outbox", false, "把发布失败的分析完成事件重新放回发件箱")
	pflag.DurationVar(&olderThan, "older-than", 0, "只重置早于该时长之前创建的消息，例如 1h")
	pflag.BoolVar(&warmCache, "warm-cache", false, "把最近的分析报告回填到Redis缓存")
	pflag.StringVar(&warmUser, "user", "", "只回填指定用户的分析")
	pflag.IntVar(&warmMaxPages, "max-pages", 10, "回填时最多处理的页数")
	pflag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "data_repair").Logger()

	if !requeue && !warmCache {
		log.Error().Msg("至少指定 --requeue-outbox 或 --warm-cache")
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("加载配置失败")
	}

	ctx := context.Background()
	storageManager, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close(log)

	if storageManager.MySQL == nil {
		log.Fatal().Msg("MySQL 不可用，无法修复数据")
	}

	if requeue {
		var cutoff time.Time
		if olderThan > 0 {
			cutoff = time.Now().Add(-olderThan)
		}
		n, err := outbox.RequeueFailed(ctx, storageManager.MySQL.DB(), cutoff)
		if err != nil {
			log.Fatal().Err(err).Msg("重置发件箱消息失败")
		}
		log.Info().Int64("messages", n).Msg("失败的发件箱消息已重置为待发布")
	}

	if warmCache {
		if storageManager.Redis == nil {
			log.Fatal().Msg("Redis 不可用，无法回填缓存")
		}
		repo := storage.NewAnalysisRepository(storageManager, cfg.RabbitMQ, log)
		warmed, failed := warmReportCache(ctx, repo, warmUser, warmMaxPages, log)
		log.Info().Int("warmed", warmed).Int("failed", failed).Msg("报告缓存回填完成")
	}
}

// warmReportCache 按页读取分析记录，并发调用 GetAnalysis 触发缓存回填
func warmReportCache(ctx context.Context, repo *storage.AnalysisRepository, user string, maxPages int, log zerolog.Logger) (int, int) {
	var (
		mu             sync.Mutex
		warmed, failed int
	)

	// 使用信号量控制并发
	semaphore := make(chan struct{}, concurrency)
	for page := 1; page <= maxPages; page++ {
		result, err := repo.ListAnalyses(ctx, storage.AnalysisQuery{User: user, Page: page, PageSize: batchSize})
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("查询分析列表失败")
			break
		}
		if len(result.Items) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, item := range result.Items {
			wg.Add(1)
			semaphore <- struct{}{}

			go func(analysisID string) {
				defer func() {
					<-semaphore
					wg.Done()
				}()

				_, err := repo.GetAnalysis(ctx, analysisID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					log.Warn().Err(err).Str("analysis_id", analysisID).Msg("回填分析报告失败")
					return
				}
				warmed++
			}(item.AnalysisID)
		}

		// 等待当前批次完成
		wg.Wait()
		log.Info().Int("page", page).Int("items", len(result.Items)).Msg("批次处理完成")

		if int64(page*batchSize) >= result.Total {
			break
		}
	}
	return warmed, failed
}
