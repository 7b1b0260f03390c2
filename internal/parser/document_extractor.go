package parser

import (
	"context"
	"strings"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

// DocumentExtractor 把上传的 PDF/DOCX 转成规范化文本
type DocumentExtractor struct {
	pdf    PDFPageExtractor
	docx   *DocxExtractor
	logger zerolog.Logger
}

// NewDocumentExtractor 创建文档提取器，pdf 为 nil 时使用 ledongthuc 后端
func NewDocumentExtractor(pdfBackend PDFPageExtractor, logger zerolog.Logger) *DocumentExtractor {
	if pdfBackend == nil {
		pdfBackend = NewPageTextPDFExtractor(WithPageTextLogger(logger))
	}
	return &DocumentExtractor{
		pdf:    pdfBackend,
		docx:   NewDocxExtractor(WithDocxLogger(logger)),
		logger: logger,
	}
}

// Extract 返回提取到的文本；格式不支持、解析失败或没有可见内容时 ok 为 false
func (d *DocumentExtractor) Extract(ctx context.Context, doc types.RawDocument) (string, bool) {
	format := doc.Format
	if format == types.FormatUnknown {
		format = types.DetectFormat(doc.FileName)
	}

	var text string
	switch format {
	case types.FormatPDF:
		pages, err := d.pdf.ExtractPages(ctx, doc.Data, doc.FileName)
		if err != nil {
			d.logger.Warn().Err(err).Str("file", doc.FileName).Msg("PDF解析失败")
			return "", false
		}
		text = JoinPages(pages)
	case types.FormatDOCX:
		var err error
		text, err = d.docx.ExtractText(doc.Data)
		if err != nil {
			d.logger.Warn().Err(err).Str("file", doc.FileName).Msg("DOCX解析失败")
			return "", false
		}
	default:
		d.logger.Debug().Str("file", doc.FileName).Str("format", string(format)).Msg("不支持的文档格式")
		return "", false
	}

	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// Supports 判断格式是否受支持
func Supports(format types.DocumentFormat) bool {
	return format == types.FormatPDF || format == types.FormatDOCX
}
