package handler

import (
	"context"
	"io"
	"strconv"
	"time"

	"resume-ats-go/internal/constants"
	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/storage"
	"resume-ats-go/internal/types"
	apputils "resume-ats-go/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// UserContextKey 鉴权中间件写入当前用户名的键
const UserContextKey = "ats_user"

// Analyzer 分析引擎
type Analyzer interface {
	Analyze(ctx context.Context, req processor.AnalysisRequest) (*types.AnalysisReport, error)
	Enhance(ctx context.Context, text, promptOverride string) (string, error)
	Ready() error
}

// AnalysisStore 已保存分析的查询
type AnalysisStore interface {
	GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisReport, error)
	ListAnalyses(ctx context.Context, q storage.AnalysisQuery) (*storage.AnalysisPage, error)
	OriginalFile(ctx context.Context, analysisID string) (string, []byte, error)
}

// HealthChecker 基础设施组件的连通性
type HealthChecker interface {
	Health(ctx context.Context) map[string]bool
}

// AnalysisHandler 简历分析相关的HTTP接口
type AnalysisHandler struct {
	analyzer Analyzer
	store    AnalysisStore
	health   HealthChecker
	logger   zerolog.Logger
}

// NewAnalysisHandler 创建处理器，store 与 health 可以为 nil
func NewAnalysisHandler(analyzer Analyzer, store AnalysisStore, health HealthChecker, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		store:    store,
		health:   health,
		logger:   logger.With().Str("component", "analysis_handler").Logger(),
	}
}

// EnhanceRequest 改写请求
type EnhanceRequest struct {
	Text           string `json:"text"`
	PromptOverride string `json:"prompt_override,omitempty"`
}

// currentUser 返回鉴权后的用户，未启用鉴权时为匿名用户
func currentUser(c *app.RequestContext) string {
	if user := c.GetString(UserContextKey); user != "" {
		return user
	}
	return constants.AnonymousUser
}

// HandleAnalyze 上传简历并返回分析报告
// POST /api/v1/analyze
func (h *AnalysisHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	var doc types.RawDocument
	if fileHeader, err := c.FormFile("resume_file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			writeError(ctx, c, processor.NewInternalError("open_upload", err))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(ctx, c, processor.NewInternalError("read_upload", err))
			return
		}
		doc = types.RawDocument{FileName: fileHeader.Filename, Data: data}
	}

	req := processor.AnalysisRequest{
		Document:       doc,
		Role:           string(c.FormValue("job_role")),
		JobDescription: string(c.FormValue("job_description")),
		User:           currentUser(c),
	}

	start := time.Now()
	report, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		h.logger.Warn().Err(err).Str("file", doc.FileName).Str("code", string(processor.CodeOf(err))).Msg("简历分析失败")
		writeError(ctx, c, err)
		return
	}

	h.logger.Info().
		Str("analysis_id", report.AnalysisID).
		Str("user", req.User).
		Bool("saved", report.Saved).
		Dur("elapsed", time.Since(start)).
		Msg("分析请求完成")
	c.JSON(consts.StatusOK, report)
}

// HandleEnhance 使用生成式服务改写一段文字
// POST /api/v1/enhance
func (h *AnalysisHandler) HandleEnhance(ctx context.Context, c *app.RequestContext) {
	var req EnhanceRequest
	if err := c.Bind(&req); err != nil {
		writeError(ctx, c, processor.NewMissingInputError("enhance", "Invalid request body"))
		return
	}

	enhanced, err := h.analyzer.Enhance(ctx, req.Text, req.PromptOverride)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"enhanced_text": enhanced})
}

// HandleRoles 返回内置的岗位列表
// GET /api/v1/roles
func (h *AnalysisHandler) HandleRoles(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"roles": processor.Roles()})
}

// HandleGetAnalysis 查询一次已保存的分析
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) HandleGetAnalysis(ctx context.Context, c *app.RequestContext) {
	if h.store == nil {
		writeError(ctx, c, storage.ErrPersistenceUnavailable)
		return
	}
	report, err := h.store.GetAnalysis(ctx, c.Param("id"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, report)
}

// HandleListAnalyses 分页列出已保存的分析，启用鉴权时只能看到自己的记录
// GET /api/v1/analyses?user=&file_md5=&page=&page_size=
func (h *AnalysisHandler) HandleListAnalyses(ctx context.Context, c *app.RequestContext) {
	if h.store == nil {
		writeError(ctx, c, storage.ErrPersistenceUnavailable)
		return
	}

	q := storage.AnalysisQuery{
		User:    c.Query("user"),
		FileMD5: c.Query("file_md5"),
	}
	if user := c.GetString(UserContextKey); user != "" {
		q.User = user
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	page, err := h.store.ListAnalyses(ctx, q)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, page)
}

// HandleDownloadOriginal 下载分析对应的原始简历
// GET /api/v1/analyses/:id/original
func (h *AnalysisHandler) HandleDownloadOriginal(ctx context.Context, c *app.RequestContext) {
	if h.store == nil {
		writeError(ctx, c, storage.ErrPersistenceUnavailable)
		return
	}
	fileName, data, err := h.store.OriginalFile(ctx, c.Param("id"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.Header("Content-Disposition", apputils.AttachmentDisposition(fileName))
	c.Data(consts.StatusOK, types.DetectFormat(fileName).ContentType(), data)
}

// HandleHealth 报告模型能力与存储组件状态
// GET /health
func (h *AnalysisHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	components := map[string]bool{}
	if h.health != nil {
		components = h.health.Health(ctx)
	}
	modelsReady := h.analyzer.Ready() == nil

	status := "ok"
	if !modelsReady {
		status = "degraded"
	}
	for _, up := range components {
		if !up {
			status = "degraded"
		}
	}
	c.JSON(consts.StatusOK, utils.H{
		"status":       status,
		"models_ready": modelsReady,
		"components":   components,
	})
}
