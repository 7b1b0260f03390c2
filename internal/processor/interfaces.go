package processor

import (
	"context"

	"resume-ats-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

//
// 文档提取相关接口
//

// TextExtractor 把原始文档转换为规范化文本
type TextExtractor interface {
	// Extract 返回文本；格式不支持、解析失败或无可见内容时 ok 为 false
	Extract(ctx context.Context, doc types.RawDocument) (string, bool)
}

//
// 模型能力接口
//

// EntityRecognizer 实体识别能力，至少支持 SKILL/ORG/PRODUCT/LANGUAGE 标签
type EntityRecognizer interface {
	ExtractEntities(ctx context.Context, text string) ([]types.Entity, error)
}

// TextEmbedder 文本嵌入能力，与 eino 的 embedding.Embedder 签名一致
type TextEmbedder interface {
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)
}

// GrammarChecker 语法检查能力
type GrammarChecker interface {
	Check(ctx context.Context, text string) ([]types.GrammarIssue, error)
}

// TextGenerator 生成式文本能力，可能不可用（缺少凭证）
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

//
// 持久化接口
//

// ReportSink 分析结果的持久化协作者
type ReportSink interface {
	SaveAnalysis(ctx context.Context, rec *types.AnalysisRecord) error
}
