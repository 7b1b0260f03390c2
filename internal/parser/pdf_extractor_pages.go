package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// PDFPageExtractor 按页提取PDF文本的后端
type PDFPageExtractor interface {
	ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error)
}

// PageTextPDFExtractor 基于 ledongthuc/pdf 逐页提取文本。
// 单页失败（包括库内部 panic）只会让该页为空，不影响其余页面。
type PageTextPDFExtractor struct {
	logger zerolog.Logger
}

// PageTextOption 配置选项
type PageTextOption func(*PageTextPDFExtractor)

// WithPageTextLogger 配置日志记录器
func WithPageTextLogger(logger zerolog.Logger) PageTextOption {
	return func(e *PageTextPDFExtractor) {
		e.logger = logger
	}
}

// NewPageTextPDFExtractor 创建逐页PDF提取器
func NewPageTextPDFExtractor(options ...PageTextOption) *PageTextPDFExtractor {
	e := &PageTextPDFExtractor{logger: zerolog.Nop()}
	for _, option := range options {
		option(e)
	}
	return e
}

// ExtractPages 返回每一页的文本，顺序与文档一致；无法读取的页面返回空字符串
func (e *PageTextPDFExtractor) ExtractPages(ctx context.Context, data []byte, uri string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("打开PDF时发生panic (URI: %s): %v", uri, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开PDF失败 (URI: %s): %w", uri, err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if ctx.Err() != nil {
			return pages, ctx.Err()
		}
		text, pageErr := e.pageText(reader, i)
		if pageErr != nil {
			e.logger.Warn().Err(pageErr).Str("uri", uri).Int("page", i).Msg("PDF页面提取失败，按空页处理")
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (e *PageTextPDFExtractor) pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("第%d页解析panic: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// JoinPages 按文档顺序用换行拼接非空页面
func JoinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n")
}
