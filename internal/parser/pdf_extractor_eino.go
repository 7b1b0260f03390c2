package parser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// EinoPDFExtractor 使用 Eino PDF Parser 按页提取文本。
// Eino 遇到单页失败会放弃整个文档，此时改用 fallback 逐页提取，失败的页按空页处理。
type EinoPDFExtractor struct {
	parser   *pdf.PDFParser
	fallback PDFPageExtractor
	logger   zerolog.Logger
	timeout  time.Duration
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(logger zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFExtractor) {
		e.logger = logger
	}
}

// WithEinoTimeout 配置单个文档的解析超时
func WithEinoTimeout(timeout time.Duration) EinoPDFOption {
	return func(e *EinoPDFExtractor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithEinoFallback 配置 Eino 解析失败时使用的后端，默认为 PageTextPDFExtractor
func WithEinoFallback(fallback PDFPageExtractor) EinoPDFOption {
	return func(e *EinoPDFExtractor) {
		e.fallback = fallback
	}
}

// NewEinoPDFExtractor 初始化 Eino PDF 文本提取器，按页面分割输出
func NewEinoPDFExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true, // 每页一个 Document，便于跳过空页
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &EinoPDFExtractor{
		parser:  p,
		logger:  zerolog.Nop(),
		timeout: 30 * time.Second,
	}
	for _, option := range options {
		option(extractor)
	}
	if extractor.fallback == nil {
		extractor.fallback = NewPageTextPDFExtractor(WithPageTextLogger(extractor.logger))
	}
	return extractor, nil
}

// ExtractPages 实现 PDFPageExtractor
func (e *EinoPDFExtractor) ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parse(ctx, data, uri, startTime)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
		}
		e.logger.Warn().Err(err).Str("uri", uri).Msg("Eino PDF解析失败，改用逐页提取")
		return e.fallback.ExtractPages(ctx, data, uri)
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, doc.Content)
	}

	e.logger.Debug().
		Str("uri", uri).
		Int("pages", len(pages)).
		Dur("duration", time.Since(startTime)).
		Msg("Eino PDF提取完成")
	return pages, nil
}

func (e *EinoPDFExtractor) parse(ctx context.Context, data []byte, uri string, startTime time.Time) (docs []*schema.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("eino PDF parser panic: %v", r)
		}
	}()

	return e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"extraction_time": startTime.Format(time.RFC3339),
		}),
	)
}
