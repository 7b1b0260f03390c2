package constants

// Redis Key 格式: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "ats"

	// KeyAnalysisReport 分析报告缓存 (STRING, JSON)
	// 格式: ats:analysis:report:{analysisID}
	KeyAnalysisReport = AppPrefix + ":analysis:report:%s"
)
