package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/constants"
	"resume-ats-go/internal/storage/models"
	"resume-ats-go/internal/types"
	"resume-ats-go/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

var (
	// ErrPersistenceUnavailable 未配置或未连上MySQL
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrOriginalNotStored 分析记录没有关联的原始文件
	ErrOriginalNotStored = errors.New("original file not stored")
)

const defaultPageSize = 20

type analysisStore interface {
	CreateAnalysisWithOutbox(ctx context.Context, analysis *models.Analysis, msg *models.OutboxMessage) error
	GetAnalysis(ctx context.Context, analysisID string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]models.Analysis, int64, error)
}

type originalStore interface {
	UploadOriginal(ctx context.Context, analysisID, fileName string, data []byte) (string, string, error)
	DownloadOriginal(ctx context.Context, objectKey string) ([]byte, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

type reportCache interface {
	CacheReport(ctx context.Context, analysisID string, reportJSON []byte) error
	GetCachedReport(ctx context.Context, analysisID string) ([]byte, error)
}

// AnalysisQuery 分页查询参数
type AnalysisQuery struct {
	User     string
	FileMD5  string
	Page     int
	PageSize int
}

// AnalysisListItem 列表中的一条分析摘要
type AnalysisListItem struct {
	AnalysisID       string    `json:"analysis_id"`
	User             string    `json:"user"`
	JobRole          string    `json:"job_role"`
	OriginalFilename string    `json:"original_filename"`
	ATSScoreGeneral  int       `json:"ats_score_general"`
	ATSScoreJD       *int      `json:"ats_score_jd"`
	CreatedAt        time.Time `json:"created_at"`
}

// AnalysisPage 分页结果
type AnalysisPage struct {
	Items    []AnalysisListItem `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// AnalysisRepository 组合MySQL、MinIO、Redis完成分析结果的保存与查询
type AnalysisRepository struct {
	db       analysisStore
	objects  originalStore
	cache    reportCache
	exchange string
	routing  string
	logger   zerolog.Logger
}

// NewAnalysisRepository 基于已初始化的存储组件创建仓库，缺失的组件按可选处理
func NewAnalysisRepository(s *Storage, mqCfg config.RabbitMQConfig, log zerolog.Logger) *AnalysisRepository {
	r := &AnalysisRepository{
		logger: log.With().Str("component", "analysis_repository").Logger(),
	}
	if s == nil {
		return r
	}
	// 没有消息代理时不写发件箱，避免消息堆积
	if s.RabbitMQ != nil {
		r.exchange = mqCfg.AnalysisEventsExchange
		r.routing = mqCfg.CompletedRoutingKey
	}
	if s.MySQL != nil {
		r.db = s.MySQL
	}
	if s.MinIO != nil {
		r.objects = s.MinIO
	}
	if s.Redis != nil {
		r.cache = s.Redis
	}
	return r
}

// Available 是否可以持久化
func (r *AnalysisRepository) Available() bool {
	return r != nil && r.db != nil
}

// SaveAnalysis 上传原始文件，在一个事务内写入分析记录与分析完成事件，再写缓存
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, rec *types.AnalysisRecord) error {
	if !r.Available() {
		return ErrPersistenceUnavailable
	}
	if rec == nil || rec.Report == nil {
		return fmt.Errorf("分析记录为空")
	}
	report := rec.Report

	var objectKey, fileMD5 string
	if r.objects != nil && len(rec.FileData) > 0 {
		key, sum, err := r.objects.UploadOriginal(ctx, report.AnalysisID, rec.FileName, rec.FileData)
		if err != nil {
			r.logger.Warn().Err(err).Str("analysis_id", report.AnalysisID).Msg("原始文件上传失败，仅保存分析结果")
		} else {
			objectKey, fileMD5 = key, sum
		}
	}
	if fileMD5 == "" && len(rec.FileData) > 0 {
		fileMD5 = utils.CalculateMD5(rec.FileData)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("序列化分析报告失败: %w", err)
	}

	analysis := &models.Analysis{
		AnalysisID:       report.AnalysisID,
		UserName:         rec.User,
		JobRole:          rec.JobRole,
		JobDescription:   rec.JobDescription,
		ResumeFile:       objectKey,
		OriginalFilename: rec.FileName,
		FileMD5:          fileMD5,
		ATSScoreGeneral:  report.ATSScoreGeneral,
		ATSScoreRole:     report.ATSScoreRole,
		ATSScoreJD:       report.ATSScoreJD,
		AnalysisResult:   datatypes.JSON(reportJSON),
		CreatedAt:        report.CreatedAt,
	}

	msg, err := r.completedMessage(analysis)
	if err != nil {
		return err
	}

	if err := r.db.CreateAnalysisWithOutbox(ctx, analysis, msg); err != nil {
		if objectKey != "" {
			if delErr := r.objects.DeleteObject(ctx, objectKey); delErr != nil {
				r.logger.Warn().Err(delErr).Str("object", objectKey).Msg("清理已上传的原始文件失败")
			}
		}
		return fmt.Errorf("保存分析记录失败: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheReport(ctx, report.AnalysisID, reportJSON); err != nil {
			r.logger.Warn().Err(err).Str("analysis_id", report.AnalysisID).Msg("写入报告缓存失败")
		}
	}
	return nil
}

// completedMessage 构造分析完成事件；未配置exchange时不发事件
func (r *AnalysisRepository) completedMessage(a *models.Analysis) (*models.OutboxMessage, error) {
	if r.exchange == "" {
		return nil, nil
	}
	payload, err := json.Marshal(AnalysisCompletedEvent{
		AnalysisID:      a.AnalysisID,
		User:            a.UserName,
		JobRole:         a.JobRole,
		ATSScoreGeneral: a.ATSScoreGeneral,
		ATSScoreJD:      a.ATSScoreJD,
		ResumeFile:      a.ResumeFile,
		FileMD5:         a.FileMD5,
		CreatedAt:       a.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化分析完成事件失败: %w", err)
	}
	return &models.OutboxMessage{
		MessageID:        uuid.NewString(),
		AggregateID:      a.AnalysisID,
		EventType:        constants.EventTypeAnalysisCompleted,
		Payload:          string(payload),
		TargetExchange:   r.exchange,
		TargetRoutingKey: r.routing,
		Status:           models.OutboxStatusPending,
	}, nil
}

// GetAnalysis 先查缓存，未命中再查库并回填缓存
func (r *AnalysisRepository) GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisReport, error) {
	if r.cache != nil {
		data, err := r.cache.GetCachedReport(ctx, analysisID)
		switch {
		case err == nil:
			var report types.AnalysisReport
			if jsonErr := json.Unmarshal(data, &report); jsonErr == nil {
				return &report, nil
			}
			r.logger.Warn().Str("analysis_id", analysisID).Msg("缓存中的报告无法解析，改为查库")
		case !errors.Is(err, ErrNotFound):
			r.logger.Warn().Err(err).Str("analysis_id", analysisID).Msg("读取报告缓存失败")
		}
	}

	if !r.Available() {
		return nil, ErrPersistenceUnavailable
	}
	analysis, err := r.db.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	var report types.AnalysisReport
	if err := json.Unmarshal(analysis.AnalysisResult, &report); err != nil {
		return nil, fmt.Errorf("解析分析结果失败: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheReport(ctx, analysisID, analysis.AnalysisResult); err != nil {
			r.logger.Warn().Err(err).Str("analysis_id", analysisID).Msg("回填报告缓存失败")
		}
	}
	return &report, nil
}

// ListAnalyses 分页列出分析记录，页码从1开始
func (r *AnalysisRepository) ListAnalyses(ctx context.Context, q AnalysisQuery) (*AnalysisPage, error) {
	if !r.Available() {
		return nil, ErrPersistenceUnavailable
	}
	page, pageSize := normalizePage(q.Page, q.PageSize)

	rows, total, err := r.db.ListAnalyses(ctx, AnalysisFilter{
		User:    q.User,
		FileMD5: q.FileMD5,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		return nil, err
	}

	items := make([]AnalysisListItem, 0, len(rows))
	for _, a := range rows {
		items = append(items, AnalysisListItem{
			AnalysisID:       a.AnalysisID,
			User:             a.UserName,
			JobRole:          a.JobRole,
			OriginalFilename: a.OriginalFilename,
			ATSScoreGeneral:  a.ATSScoreGeneral,
			ATSScoreJD:       a.ATSScoreJD,
			CreatedAt:        a.CreatedAt,
		})
	}
	return &AnalysisPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// OriginalFile 下载分析对应的原始上传文件
func (r *AnalysisRepository) OriginalFile(ctx context.Context, analysisID string) (string, []byte, error) {
	if !r.Available() {
		return "", nil, ErrPersistenceUnavailable
	}
	analysis, err := r.db.GetAnalysis(ctx, analysisID)
	if err != nil {
		return "", nil, err
	}
	if analysis.ResumeFile == "" || r.objects == nil {
		return "", nil, ErrOriginalNotStored
	}
	data, err := r.objects.DownloadOriginal(ctx, analysis.ResumeFile)
	if err != nil {
		return "", nil, err
	}
	return analysis.OriginalFilename, data, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}
