package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-ats-go/internal/api/handler"
	"resume-ats-go/internal/api/router"
	"resume-ats-go/internal/bootstrap"
	"resume-ats-go/internal/config"
	"resume-ats-go/internal/constants"
	appLogger "resume-ats-go/internal/logger"
	"resume-ats-go/internal/metrics"
	"resume-ats-go/internal/outbox"
	"resume-ats-go/internal/storage"
	"resume-ats-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var version = "1.0.0" //nolint:gochecknoglobals

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath   string
		sampleConfig string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVar(&sampleConfig, "init-config", "", "Write a sample config file to the given path and exit")
	pflag.Parse()

	if sampleConfig != "" {
		if err := config.CreateSampleConfig(sampleConfig); err != nil {
			hlog.Fatalf("生成示例配置失败: %v", err)
		}
		hlog.Infof("示例配置已写入 %s", sampleConfig)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		hlog.Fatalf("加载配置失败: %v", err)
	}

	logCloser, err := appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})
	if err != nil {
		hlog.Fatalf("初始化日志失败: %v", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	log := appLogger.Named("server").With().Str("service", constants.ServiceName).Logger()
	log.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing, version)
	if err != nil {
		log.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
		shutdownTracing = func(context.Context) error { return nil }
	}

	storageManager, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("存储组件全部不可用，分析结果不会被保存")
		storageManager = &storage.Storage{}
	}
	defer storageManager.Close(log)

	repo := storage.NewAnalysisRepository(storageManager, cfg.RabbitMQ, log)

	var relay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, cfg.Outbox, log)
		relay.Start()
	}

	appMetrics := metrics.New()
	analyzer := bootstrap.BuildAnalyzer(ctx, cfg, repo, appMetrics, log)
	if err := analyzer.Ready(); err != nil {
		log.Warn().Err(err).Msg("模型能力不完整，分析接口将返回 503")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodyMB<<20),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	var store handler.AnalysisStore
	if repo.Available() {
		store = repo
	}
	analysisHandler := handler.NewAnalysisHandler(analyzer, store, storageManager, log)
	router.RegisterRoutes(h, analysisHandler, appMetrics, cfg.Auth)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	if relay != nil {
		relay.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	log.Info().Msg("优雅退出完成")
}
