package storage

import "time"

// AnalysisCompletedEvent 分析完成后经发件箱发布的事件体
type AnalysisCompletedEvent struct {
	AnalysisID      string    `json:"analysis_id"`
	User            string    `json:"user"`
	JobRole         string    `json:"job_role"`
	ATSScoreGeneral int       `json:"ats_score_general"`
	ATSScoreJD      *int      `json:"ats_score_jd,omitempty"`
	ResumeFile      string    `json:"resume_file,omitempty"`
	FileMD5         string    `json:"file_md5,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
