package constants

// Redis Key 前缀和格式常量
// 命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntityAnalysis 分析结果实体
	EntityAnalysis = "analysis"
	// EntityStrategy 求职策略实体
	EntityStrategy = "strategy"

	// KeyResumeAnalysis 简历分析Markdown缓存 (STRING)
	// 格式: app:resume:analysis:{slug}
	KeyResumeAnalysis = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityAnalysis + ":%s"

	// KeyResumeStrategy 求职策略缓存 (STRING)
	// 格式: app:resume:strategy:{slug}
	KeyResumeStrategy = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityStrategy + ":%s"
)
