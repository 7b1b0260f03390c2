package processor

import (
	"fmt"
	"time"

	"resume-ats-go/internal/types"
)

// reportParts 汇总各阶段输出
type reportParts struct {
	Role      string
	Contact   types.ContactInfo
	Skills    []string
	RoleMatch types.MatchResult
	JDMatch   *types.MatchResult
	RoleScore int
	JDScore   *int
	Feedback  []string
	CreatedAt time.Time
}

// BuildSummary 生成一行摘要；有 JD 分数时追加 JD 匹配度
func BuildSummary(role string, roleScore int, jdScore *int) string {
	summary := fmt.Sprintf("Analysis for %s. Role Match: %d%%.", role, roleScore)
	if jdScore != nil {
		summary += fmt.Sprintf(" JD Match: %d%%.", *jdScore)
	}
	return summary
}

func assembleReport(p reportParts) *types.AnalysisReport {
	report := &types.AnalysisReport{
		Success:            true,
		JobRoleSelected:    p.Role,
		Name:               p.Contact.Name,
		Email:              p.Contact.Email,
		Phone:              p.Contact.Phone,
		ResumeSkills:       nonNil(p.Skills),
		RoleMatchingSkills: nonNil(p.RoleMatch.Matching),
		RoleMissingSkills:  nonNil(p.RoleMatch.Missing),
		JDMatchingSkills:   []string{},
		JDMissingSkills:    []string{},
		// 通用分与岗位分保持一致，兼容旧前端字段
		ATSScoreGeneral: p.RoleScore,
		ATSScoreRole:    p.RoleScore,
		ATSScoreJD:      p.JDScore,
		AnalysisSummary: BuildSummary(p.Role, p.RoleScore, p.JDScore),
		QualityFeedback: nonNil(p.Feedback),
		CreatedAt:       p.CreatedAt,
	}
	if p.JDMatch != nil {
		report.JDMatchingSkills = nonNil(p.JDMatch.Matching)
		report.JDMissingSkills = nonNil(p.JDMatch.Missing)
	}
	return report
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
