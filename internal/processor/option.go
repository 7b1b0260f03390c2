package processor

import (
	"time"

	"github.com/rs/zerolog"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompExtractor 设置文档文本提取器
func WithcompExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithcompRecognizer 设置实体识别能力
func WithcompRecognizer(recognizer EntityRecognizer) ComponentOpt {
	return func(c *Components) {
		c.Recognizer = recognizer
	}
}

// WithcompEmbedder 设置文本嵌入能力
func WithcompEmbedder(embedder TextEmbedder) ComponentOpt {
	return func(c *Components) {
		c.Embedder = embedder
	}
}

// WithcompGrammarChecker 设置语法检查能力
func WithcompGrammarChecker(checker GrammarChecker) ComponentOpt {
	return func(c *Components) {
		c.Grammar = checker
	}
}

// WithcompGenerator 设置生成式文本能力（可选）
func WithcompGenerator(generator TextGenerator) ComponentOpt {
	return func(c *Components) {
		c.Generator = generator
	}
}

// WithcompReportSink 设置分析结果的持久化协作者（可选）
func WithcompReportSink(sink ReportSink) ComponentOpt {
	return func(c *Components) {
		c.Sink = sink
	}
}

// ----- 设置选项 -----

// WithsetLogger 设置日志记录器
func WithsetLogger(logger zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithsetGenerateTimeout 设置生成岗位关键词的超时
func WithsetGenerateTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		s.GenerateTimeout = d
	}
}

// WithsetEmbedTimeout 设置语义相似度计算的超时
func WithsetEmbedTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		s.EmbedTimeout = d
	}
}

// WithsetGrammarTimeout 设置语法检查的超时
func WithsetGrammarTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		s.GrammarTimeout = d
	}
}

// WithsetPersistTimeout 设置持久化的超时
func WithsetPersistTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		s.PersistTimeout = d
	}
}

// WithsetGrammarSampleChars 设置送去语法检查的字符数
func WithsetGrammarSampleChars(n int) SettingOpt {
	return func(s *Settings) {
		s.GrammarSampleChars = n
	}
}

// WithsetTimelocation 设置时区
func WithsetTimelocation(loc *time.Location) SettingOpt {
	return func(s *Settings) {
		if loc != nil {
			s.TimeLocation = loc
		} else {
			s.TimeLocation = time.Local
		}
	}
}

// WithsetObserver 设置分析过程的观察者（指标采集）
func WithsetObserver(observer Observer) SettingOpt {
	return func(s *Settings) {
		s.Observer = observer
	}
}
