package models

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis 一次简历分析的持久化记录
type Analysis struct {
	AnalysisID       string         `gorm:"type:char(36);primaryKey"`
	UserName         string         `gorm:"type:varchar(255);not null;index:idx_analyses_user_created,priority:1"`
	JobRole          string         `gorm:"type:varchar(255);not null"`
	JobDescription   string         `gorm:"type:text"`
	ResumeFile       string         `gorm:"type:varchar(512)"` // MinIO 对象键，上传失败时为空
	OriginalFilename string         `gorm:"type:varchar(255)"`
	FileMD5          string         `gorm:"type:char(32);index:idx_analyses_file_md5"`
	ATSScoreGeneral  int            `gorm:"not null"`
	ATSScoreRole     int            `gorm:"not null"`
	ATSScoreJD       *int           `gorm:"null"`
	AnalysisResult   datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_analyses_user_created,priority:2,sort:desc"`
}

func (Analysis) TableName() string {
	return "analyses"
}
