package constants

import "time"

const (
	// ServiceName 服务名称，用于日志和追踪
	ServiceName = "resume-ats-go"

	// AnonymousUser 未启用鉴权时记录的用户名
	AnonymousUser = "anonymous"

	// ReportCacheDuration 分析报告在Redis中的默认缓存时间
	ReportCacheDuration = 24 * time.Hour

	// EventTypeAnalysisCompleted 分析完成事件类型
	EventTypeAnalysisCompleted = "analysis.completed"

	// MaxPageSize 分页查询的最大页大小
	MaxPageSize = 100
)
