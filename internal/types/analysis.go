package types

import "time"

// AnalysisKind 分析结果的形态标签
type AnalysisKind string

const (
	// AnalysisKindMarkdown 模型路径产出的Markdown文档
	AnalysisKindMarkdown AnalysisKind = "markdown"
	// AnalysisKindFallback 本地降级路径产出的结构化记录
	AnalysisKindFallback AnalysisKind = "fallback"
)

// FallbackAnalysis 降级分析的固定形态记录
type FallbackAnalysis struct {
	TechnicalSkills   []string  `json:"technical_skills"` // 去重且小写规整后的技能集合，按字典序
	SoftSkills        []string  `json:"soft_skills"`
	YearsOfExperience int       `json:"years_of_experience"` // 永远 >= 0
	Education         []string  `json:"education"`           // 降级路径下恒为空
	Recommendations   []string  `json:"recommendations"`
	AnalysisDate      time.Time `json:"analysis_date"`
}

// AnalysisResult 分析结果。两种形态互斥，调用方必须按Kind分支处理：
// Markdown形态来自模型路径，Fallback形态来自本地降级路径。
type AnalysisResult struct {
	Kind     AnalysisKind      `json:"kind"`
	Markdown string            `json:"markdown,omitempty"`
	Fallback *FallbackAnalysis `json:"fallback,omitempty"`
}

// NewMarkdownAnalysis 构建Markdown形态的结果
func NewMarkdownAnalysis(markdown string) AnalysisResult {
	return AnalysisResult{Kind: AnalysisKindMarkdown, Markdown: markdown}
}

// NewFallbackAnalysis 构建降级形态的结果
func NewFallbackAnalysis(fb *FallbackAnalysis) AnalysisResult {
	return AnalysisResult{Kind: AnalysisKindFallback, Fallback: fb}
}

// IsMarkdown 是否为模型路径产出
func (r AnalysisResult) IsMarkdown() bool {
	return r.Kind == AnalysisKindMarkdown
}
