package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-ats-go/internal/tracing"
	"resume-ats-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
)

const enhancePromptTemplate = `Rewrite this resume bullet point to be professional: "%s"`

// 降级的能力名称
const (
	CapabilityGrammar     = "grammar"
	CapabilityEmbedding   = "embedding"
	CapabilityGenerator   = "generator"
	CapabilityPersistence = "persistence"
)

// Components 聚合分析引擎依赖的能力，进程启动时构建一次，之后只读
type Components struct {
	Extractor  TextExtractor    // 文档文本提取
	Recognizer EntityRecognizer // 实体识别（必需）
	Embedder   TextEmbedder     // 文本嵌入（必需）
	Grammar    GrammarChecker   // 语法检查（必需）
	Generator  TextGenerator    // 生成式文本（可选）
	Sink       ReportSink       // 持久化（可选）
}

// NewComponents 通过选项构建能力集合
func NewComponents(opts ...ComponentOpt) *Components {
	c := &Components{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate 检查必需的模型能力是否已加载
func (c *Components) Validate() error {
	if c == nil {
		return NewModelsUnavailableError("validate", "AI models failed to load.")
	}
	var missing []string
	if c.Recognizer == nil {
		missing = append(missing, "entity recognizer")
	}
	if c.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if c.Grammar == nil {
		missing = append(missing, "grammar checker")
	}
	if len(missing) > 0 {
		return NewModelsUnavailableError("validate", "AI models failed to load: "+strings.Join(missing, ", "))
	}
	return nil
}

// Observer 观察分析过程（用于指标）
type Observer interface {
	ObserveDegraded(capability string)
	ObserveReport(report *types.AnalysisReport, source KeywordSource)
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	GenerateTimeout    time.Duration
	EmbedTimeout       time.Duration
	GrammarTimeout     time.Duration
	PersistTimeout     time.Duration
	GrammarSampleChars int
	Logger             zerolog.Logger
	TimeLocation       *time.Location
	Observer           Observer
}

// DefaultSettings 返回默认设置
func DefaultSettings() *Settings {
	return &Settings{
		GenerateTimeout:    15 * time.Second,
		EmbedTimeout:       20 * time.Second,
		GrammarTimeout:     20 * time.Second,
		PersistTimeout:     10 * time.Second,
		GrammarSampleChars: defaultGrammarSampleChars,
		Logger:             zerolog.Nop(),
		TimeLocation:       time.Local,
	}
}

// AnalysisRequest 一次分析请求
type AnalysisRequest struct {
	Document       types.RawDocument
	Role           string
	JobDescription string
	User           string
}

// Analyzer 简历分析引擎：提取 -> 联系方式/技能 -> 关键词 -> 匹配 -> 评分 -> 报告
type Analyzer struct {
	comp     *Components
	settings Settings

	contacts *ContactExtractor
	skills   *SkillExtractor
	keywords *KeywordBuilder
	scorer   *Scorer
	logger   zerolog.Logger
}

// NewAnalyzer 使用组件与设置创建分析引擎
func NewAnalyzer(comp *Components, set *Settings, opts ...SettingOpt) *Analyzer {
	if comp == nil {
		comp = &Components{}
	}
	if set == nil {
		set = DefaultSettings()
	}
	for _, opt := range opts {
		opt(set)
	}
	if set.TimeLocation == nil {
		set.TimeLocation = time.Local
	}

	logger := set.Logger.With().Str("component", "analyzer").Logger()
	if err := comp.Validate(); err != nil {
		logger.Warn().Err(err).Msg("分析引擎缺少必需的模型能力，请求将返回 models-unavailable")
	}

	return &Analyzer{
		comp:     comp,
		settings: *set,
		contacts: NewContactExtractor(logger),
		skills:   NewSkillExtractor(comp.Recognizer, logger),
		keywords: NewKeywordBuilder(comp.Generator, comp.Recognizer, set.GenerateTimeout, logger),
		scorer:   NewScorer(comp.Grammar, set.GrammarTimeout, set.GrammarSampleChars, logger),
		logger:   logger,
	}
}

// Ready 报告必需能力是否可用
func (a *Analyzer) Ready() error {
	return a.comp.Validate()
}

// Analyze 执行一次完整的简历分析
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (*types.AnalysisReport, error) {
	if err := a.comp.Validate(); err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	if (req.Document.FileName == "" && len(req.Document.Data) == 0) || role == "" {
		return nil, NewMissingInputError("analyze", "Missing file or job role.")
	}

	doc := req.Document
	if doc.Format == types.FormatUnknown {
		doc.Format = types.DetectFormat(doc.FileName)
	}
	if doc.Format == types.FormatUnknown {
		return nil, NewUnsupportedFormatError("analyze", "Invalid file type")
	}
	if a.comp.Extractor == nil {
		return nil, NewInternalError("analyze", errors.New("文档提取器未配置"))
	}

	start := time.Now()
	log := a.logger.With().Str("role", role).Str("file", doc.FileName).Logger()

	text, ok := a.comp.Extractor.Extract(ctx, doc)
	if !ok {
		return nil, NewEmptyDocumentError("analyze", "Empty file")
	}

	contact := a.contacts.Extract(text)
	if contact.HasEmail() {
		log.Debug().Str("email", tracing.MaskPII(*contact.Email)).Bool("has_phone", contact.HasPhone()).Msg("联系方式已提取")
	}
	skills := a.skills.Extract(ctx, text)

	roleTarget, source := a.keywords.RoleTarget(ctx, role)
	if source == KeywordSourceFallback && a.comp.Generator != nil {
		a.degraded(CapabilityGenerator)
	}
	roleMatch := MatchSkills(skills, roleTarget)

	quality, feedback, signals := a.scorer.QualityScore(ctx, text, contact, skills)
	if !signals.GrammarChecked {
		a.degraded(CapabilityGrammar)
	}
	roleScore := RoleScore(quality, roleMatch.Percent)

	parts := reportParts{
		Role:      role,
		Contact:   contact,
		Skills:    skills,
		RoleMatch: roleMatch,
		RoleScore: roleScore,
		Feedback:  feedback,
		CreatedAt: time.Now().In(a.settings.TimeLocation),
	}

	if jd := req.JobDescription; strings.TrimSpace(jd) != "" {
		jdMatch := MatchSkills(skills, a.keywords.JDTarget(ctx, jd))
		semantic := a.semanticSimilarity(ctx, text, jd) * 100
		jdScore := JDScore(quality, semantic, jdMatch.Percent)
		parts.JDMatch = &jdMatch
		parts.JDScore = &jdScore
	}

	report := assembleReport(parts)
	report.AnalysisID = newAnalysisID()

	log.Info().
		Str("analysis_id", report.AnalysisID).
		Int("skills", len(skills)).
		Int("quality", quality).
		Int("role_score", roleScore).
		Str("keyword_source", string(source)).
		Dur("elapsed", time.Since(start)).
		Msg("简历分析完成")

	report.Saved = a.persist(ctx, req, role, doc, report)

	if a.settings.Observer != nil {
		a.settings.Observer.ObserveReport(report, source)
	}
	return report, nil
}

// semanticSimilarity 计算简历与职位描述的余弦相似度；失败时返回0
func (a *Analyzer) semanticSimilarity(ctx context.Context, resume, jd string) float64 {
	if a.settings.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.EmbedTimeout)
		defer cancel()
	}
	vectors, err := a.comp.Embedder.EmbedStrings(ctx, []string{resume, jd})
	if err == nil && len(vectors) != 2 {
		err = fmt.Errorf("期望2个向量，实际得到%d个", len(vectors))
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("语义相似度计算失败，按0分处理")
		a.degraded(CapabilityEmbedding)
		return 0
	}
	return CosineSimilarity(vectors[0], vectors[1])
}

// persist 把报告交给持久化协作者；失败只记录日志
func (a *Analyzer) persist(ctx context.Context, req AnalysisRequest, role string, doc types.RawDocument, report *types.AnalysisReport) bool {
	if a.comp.Sink == nil {
		return false
	}

	// 客户端断开后仍然完成保存
	ctx = context.WithoutCancel(ctx)
	if a.settings.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.PersistTimeout)
		defer cancel()
	}

	report.Saved = true
	err := a.comp.Sink.SaveAnalysis(ctx, &types.AnalysisRecord{
		Report:         report,
		User:           req.User,
		JobRole:        role,
		JobDescription: req.JobDescription,
		FileName:       doc.FileName,
		FileData:       doc.Data,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("analysis_id", report.AnalysisID).Msg("保存分析结果失败，报告仍返回给调用方")
		a.degraded(CapabilityPersistence)
		report.Saved = false
		return false
	}
	return true
}

// Enhance 使用生成式服务改写一段简历文字
func (a *Analyzer) Enhance(ctx context.Context, text, promptOverride string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", NewMissingInputError("enhance", "No text")
	}
	if a.comp.Generator == nil {
		return "", NewModelsUnavailableError("enhance", "No API Key")
	}

	prompt := promptOverride
	if strings.TrimSpace(prompt) == "" {
		prompt = fmt.Sprintf(enhancePromptTemplate, text)
	}
	if a.settings.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.GenerateTimeout)
		defer cancel()
	}

	out, err := a.comp.Generator.Generate(ctx, prompt)
	if err != nil {
		a.degraded(CapabilityGenerator)
		return "", NewInternalError("enhance", err)
	}
	return out, nil
}

func (a *Analyzer) degraded(capability string) {
	if a.settings.Observer != nil {
		a.settings.Observer.ObserveDegraded(capability)
	}
}

// newAnalysisID 生成按时间排序的分析ID
func newAnalysisID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}
