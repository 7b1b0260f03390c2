package types

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentFormat 上传文档的格式标签
type DocumentFormat string

const (
	// FormatPDF PDF文档
	FormatPDF DocumentFormat = "pdf"
	// FormatDOCX Word文档
	FormatDOCX DocumentFormat = "docx"
	// FormatUnknown 不支持的格式
	FormatUnknown DocumentFormat = ""
)

// DetectFormat 根据文件名扩展名推断文档格式
func DetectFormat(fileName string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}

// ContentType 文档格式对应的MIME类型
func (f DocumentFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// RawDocument 一次分析请求内的原始上传文档
type RawDocument struct {
	FileName string
	Format   DocumentFormat
	Data     []byte
}

// 实体标签
const (
	LabelSkill    = "SKILL"
	LabelOrg      = "ORG"
	LabelProduct  = "PRODUCT"
	LabelLanguage = "LANGUAGE"
)

// Entity 实体识别返回的一个片段，Start/End 为 Unicode 码点偏移（与 spaCy 的 start_char/end_char 一致）
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start,omitempty"`
	End   int    `json:"end,omitempty"`
}

// GrammarIssue 语法检查的一条发现
type GrammarIssue struct {
	RuleID  string `json:"rule_id"`
	Context string `json:"context"`
	Message string `json:"message,omitempty"`
}

// ContactInfo 联系方式，各字段独立可选
type ContactInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// HasEmail 是否提取到邮箱
func (c ContactInfo) HasEmail() bool { return c.Email != nil && *c.Email != "" }

// HasPhone 是否提取到电话
func (c ContactInfo) HasPhone() bool { return c.Phone != nil && *c.Phone != "" }

// KeywordTarget 一次比较所用的小写关键词集合
type KeywordTarget map[string]struct{}

// NewKeywordTarget 由关键词列表构建集合
func NewKeywordTarget(words ...string) KeywordTarget {
	t := make(KeywordTarget, len(words))
	for _, w := range words {
		t.Add(w)
	}
	return t
}

// Add 加入一个关键词（小写存储）
func (t KeywordTarget) Add(word string) {
	t[strings.ToLower(word)] = struct{}{}
}

// Contains 判断关键词是否在集合中
func (t KeywordTarget) Contains(word string) bool {
	_, ok := t[strings.ToLower(word)]
	return ok
}

// MatchResult 技能集合相对于关键词集合的匹配划分
type MatchResult struct {
	Matching []string `json:"matching"`
	Missing  []string `json:"missing"`
	Percent  float64  `json:"percent"`
}

// QualitySignals 质量评分的中间信号
type QualitySignals struct {
	SectionCount      int  `json:"section_count"`
	HasEmail          bool `json:"has_email"`
	HasPhone          bool `json:"has_phone"`
	SkillCount        int  `json:"skill_count"`
	GrammarErrorCount int  `json:"grammar_error_count"`
	GrammarChecked    bool `json:"grammar_checked"`
}

// AnalysisReport 最终返回并持久化的分析报告
type AnalysisReport struct {
	Success            bool      `json:"success"`
	AnalysisID         string    `json:"analysis_id,omitempty"`
	JobRoleSelected    string    `json:"job_role_selected"`
	Name               *string   `json:"name"`
	Email              *string   `json:"email"`
	Phone              *string   `json:"phone"`
	ResumeSkills       []string  `json:"resume_skills"`
	RoleMatchingSkills []string  `json:"role_matching_skills"`
	RoleMissingSkills  []string  `json:"role_missing_skills"`
	JDMatchingSkills   []string  `json:"jd_matching_skills"`
	JDMissingSkills    []string  `json:"jd_missing_skills"`
	ATSScoreGeneral    int       `json:"ats_score_general"`
	ATSScoreRole       int       `json:"ats_score_role"`
	ATSScoreJD         *int      `json:"ats_score_jd"`
	AnalysisSummary    string    `json:"analysis_summary"`
	QualityFeedback    []string  `json:"quality_feedback"`
	Saved              bool      `json:"saved"`
	CreatedAt          time.Time `json:"created_at"`
}

// AnalysisRecord 交给持久化协作者的一次分析结果
type AnalysisRecord struct {
	Report         *AnalysisReport
	User           string
	JobRole        string
	JobDescription string
	FileName       string
	FileData       []byte
}
