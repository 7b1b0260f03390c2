package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog"
)

// wordprocessingML 主命名空间
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DocxCellSeparator 表格同一行内单元格之间的分隔符
const DocxCellSeparator = " | "

// DocxExtractor 从 DOCX 文档中提取文本：先表格（逐行），再正文段落
type DocxExtractor struct {
	logger zerolog.Logger
}

// DocxOption DOCX提取器的配置选项
type DocxOption func(*DocxExtractor)

// WithDocxLogger 配置日志记录器
func WithDocxLogger(logger zerolog.Logger) DocxOption {
	return func(e *DocxExtractor) {
		e.logger = logger
	}
}

// NewDocxExtractor 创建 DOCX 文本提取器
func NewDocxExtractor(options ...DocxOption) *DocxExtractor {
	e := &DocxExtractor{logger: zerolog.Nop()}
	for _, option := range options {
		option(e)
	}
	return e
}

// ExtractText 返回文档的纯文本，每行一个表格行或一个段落
func (e *DocxExtractor) ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("解析docx异常: %v", r)
		}
	}()

	if len(data) == 0 {
		return "", errors.New("docx内容为空")
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("读取docx失败: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	tables, paragraphs, parseErr := parseDocumentXML(content)
	if parseErr != nil {
		return "", fmt.Errorf("解析document.xml失败: %w", parseErr)
	}

	lines := make([]string, 0, len(paragraphs)+8)
	for _, table := range tables {
		for _, row := range table {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if c := strings.TrimSpace(cell); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, DocxCellSeparator))
			}
		}
	}
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}

	e.logger.Debug().
		Int("tables", len(tables)).
		Int("paragraphs", len(paragraphs)).
		Int("lines", len(lines)).
		Msg("DOCX文本提取完成")

	return strings.Join(lines, "\n"), nil
}

// docxTable 表格 -> 行 -> 单元格文本
type docxTable [][]string

// parseDocumentXML 流式解析 document.xml。
// 只收集顶层表格的直接单元格段落，以及 body 下不在表格中的段落；嵌套表格和文本框中的段落被忽略。
func parseDocumentXML(content string) ([]docxTable, []string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		tables     []docxTable
		paragraphs []string

		tblDepth  int
		pDepth    int
		inCell    bool
		cellParas []string
		para      strings.Builder
		inText    bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					tables = append(tables, docxTable{})
				}
			case "tr":
				if tblDepth == 1 {
					cur := &tables[len(tables)-1]
					*cur = append(*cur, []string{})
				}
			case "tc":
				if tblDepth == 1 {
					inCell = true
					cellParas = cellParas[:0]
				}
			case "p":
				pDepth++
				if pDepth == 1 {
					para.Reset()
				}
			case "t":
				inText = pDepth == 1
			case "tab":
				if pDepth == 1 {
					para.WriteString("\t")
				}
			case "br", "cr":
				if pDepth == 1 {
					para.WriteString("\n")
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tblDepth--
			case "tc":
				if tblDepth == 1 && inCell {
					cur := &tables[len(tables)-1]
					// 缺少 w:tr 的单元格归入一个新行
					if len(*cur) == 0 {
						*cur = append(*cur, []string{})
					}
					row := &(*cur)[len(*cur)-1]
					*row = append(*row, strings.Join(cellParas, "\n"))
					inCell = false
				}
			case "p":
				if pDepth == 1 {
					switch {
					case tblDepth == 0:
						paragraphs = append(paragraphs, para.String())
					case tblDepth == 1 && inCell:
						cellParas = append(cellParas, para.String())
					}
				}
				pDepth--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return tables, paragraphs, nil
}
