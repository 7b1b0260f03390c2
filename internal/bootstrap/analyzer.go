// Package bootstrap 按配置装配分析引擎依赖的各项能力
package bootstrap

import (
	"context"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/parser"
	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/storage"
	"resume-ats-go/pkg/ratelimit"

	"github.com/rs/zerolog"
)

const (
	generatorMaxRetries = 3
	generatorRetryWait  = 2 * time.Second
)

// BuildAnalyzer 按配置组装各项模型能力；构建失败的能力保持为空，由分析引擎报告不可用。
// sink 与 observer 可以为 nil。
func BuildAnalyzer(ctx context.Context, cfg *config.Config, sink *storage.AnalysisRepository, observer processor.Observer, log zerolog.Logger) *processor.Analyzer {
	opts := []processor.ComponentOpt{
		processor.WithcompExtractor(parser.NewDocumentExtractor(BuildPDFBackend(ctx, cfg, log), log)),
	}

	if recognizer := BuildRecognizer(cfg, log); recognizer != nil {
		opts = append(opts, processor.WithcompRecognizer(recognizer))
	}

	if cfg.Aliyun.APIKey != "" {
		embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding, parser.WithEmbedderLogger(log))
		if err != nil {
			log.Warn().Err(err).Msg("初始化阿里云Embedder失败")
		} else {
			opts = append(opts, processor.WithcompEmbedder(embedder))
		}
	} else {
		log.Warn().Msg("未配置 aliyun.api_key，无法计算语义相似度")
	}

	if cfg.LanguageTool.ServerURL != "" {
		checker, err := parser.NewLanguageToolChecker(cfg.LanguageTool.ServerURL, cfg.LanguageTool.Language,
			time.Duration(cfg.LanguageTool.TimeoutSeconds)*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("初始化LanguageTool失败")
		} else {
			opts = append(opts, processor.WithcompGrammarChecker(checker))
		}
	}

	if generator := BuildGenerator(ctx, cfg, log); generator != nil {
		opts = append(opts, processor.WithcompGenerator(generator))
	}

	if sink.Available() {
		opts = append(opts, processor.WithcompReportSink(sink))
	}

	settingOpts := []processor.SettingOpt{processor.WithsetLogger(log)}
	if observer != nil {
		settingOpts = append(settingOpts, processor.WithsetObserver(observer))
	}

	analysis := cfg.Analysis
	defaults := processor.DefaultSettings()
	settingOpts = append(settingOpts,
		processor.WithsetGenerateTimeout(config.GetDuration(analysis.GenerateTimeout, defaults.GenerateTimeout)),
		processor.WithsetEmbedTimeout(config.GetDuration(analysis.EmbedTimeout, defaults.EmbedTimeout)),
		processor.WithsetGrammarTimeout(config.GetDuration(analysis.GrammarTimeout, defaults.GrammarTimeout)),
		processor.WithsetPersistTimeout(config.GetDuration(analysis.PersistTimeout, defaults.PersistTimeout)),
		processor.WithsetGrammarSampleChars(analysis.GrammarSampleChars),
	)
	return processor.NewAnalyzer(processor.NewComponents(opts...), defaults, settingOpts...)
}

// BuildPDFBackend 按 parser.pdf_backend 选择PDF解析后端
func BuildPDFBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) parser.PDFPageExtractor {
	if cfg.Parser.PDFBackend == "eino" {
		extractor, err := parser.NewEinoPDFExtractor(ctx, parser.WithEinoLogger(log))
		if err == nil {
			log.Info().Msg("使用Eino PDF解析器")
			return extractor
		}
		log.Warn().Err(err).Msg("创建Eino PDF提取器失败，回退到默认解析器")
	}
	return parser.NewPageTextPDFExtractor(parser.WithPageTextLogger(log))
}

// BuildRecognizer 组合技能词表与远程NER，两者都不可用时返回 nil
func BuildRecognizer(cfg *config.Config, log zerolog.Logger) processor.EntityRecognizer {
	var ruler *parser.VocabularyRuler
	if path := cfg.Parser.SkillsVocabularyPath; path != "" {
		phrases, err := parser.LoadSkillVocabulary(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("加载技能词表失败")
		} else {
			ruler = parser.NewVocabularyRuler(phrases)
			log.Info().Int("phrases", len(phrases)).Msg("技能词表已加载")
		}
	}

	var model parser.EntityRecognizer
	if cfg.NER.ServerURL != "" {
		remote, err := parser.NewRemoteRecognizer(cfg.NER.ServerURL, time.Duration(cfg.NER.TimeoutSeconds)*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("初始化远程NER失败")
		} else {
			model = remote
		}
	}

	pipeline, err := parser.NewRulerPipeline(ruler, model, log)
	if err != nil {
		log.Warn().Err(err).Msg("没有可用的实体识别来源")
		return nil
	}
	return pipeline
}

// BuildGenerator 按 generator.provider 创建带限流的生成式服务，未启用时返回 nil
func BuildGenerator(ctx context.Context, cfg *config.Config, log zerolog.Logger) processor.TextGenerator {
	var (
		generator ratelimit.TextGenerator
		model     string
	)
	switch cfg.Generator.Provider {
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			log.Warn().Msg("未配置 gemini.api_key，岗位关键词将使用内置列表")
			return nil
		}
		gemini, err := parser.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Gemini失败")
			return nil
		}
		generator, model = gemini, cfg.Gemini.Model
	case "qwen":
		if cfg.Aliyun.APIKey == "" {
			log.Warn().Msg("未配置 aliyun.api_key，岗位关键词将使用内置列表")
			return nil
		}
		qwen, err := parser.NewQwenGenerator(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL, nil)
		if err != nil {
			log.Warn().Err(err).Msg("初始化通义千问失败")
			return nil
		}
		generator, model = qwen, cfg.Aliyun.Model
	default:
		log.Info().Str("provider", cfg.Generator.Provider).Msg("未启用生成式服务")
		return nil
	}

	log.Info().Str("model", model).Int("qpm", cfg.GetModelQPM(model)).Msg("生成式服务已启用")
	return ratelimit.NewRateLimitedGenerator(generator, cfg.GetModelQPM(model), generatorMaxRetries, generatorRetryWait)
}
