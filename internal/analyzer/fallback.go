package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"resume-coach-go/internal/types"
)

// technicalSkillKeywords 降级分析使用的固定技术技能词表
var technicalSkillKeywords = []string{
	"python", "java", "javascript", "typescript", "golang", "c++", "c#",
	"sql", "mysql", "postgresql", "redis", "mongodb",
	"docker", "kubernetes", "aws", "azure", "gcp", "linux", "git",
	"react", "vue", "angular", "spring", "django", "flask",
	"machine learning", "deep learning", "nlp", "pandas", "numpy", "spark",
	"hadoop", "kafka", "tableau", "excel", "sap", "matlab",
}

// softSkillKeywords 固定软技能词表
var softSkillKeywords = []string{
	"leadership", "communication", "teamwork", "collaboration",
	"problem solving", "time management", "project management",
	"adaptability", "critical thinking", "negotiation", "presentation",
	"mentoring", "stakeholder management",
}

// yearsPattern 匹配"<N> year(s) of experience"及中文"N年(工作)经验"，取首个匹配
var yearsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:\+\s*)?(?:years?\s+of\s+experience|年(?:工作)?经验)`)

// keywordPatterns 为纯单词类关键词预编译词边界正则，
// 避免"java"误中"javascript"这类子串
var keywordPatterns = buildKeywordPatterns()

func buildKeywordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	wordOnly := regexp.MustCompile(`^[a-z0-9 ]+$`)
	for _, kw := range append(append([]string{}, technicalSkillKeywords...), softSkillKeywords...) {
		if wordOnly.MatchString(kw) {
			patterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
	return patterns
}

// fallbackAnalyze 本地确定性分析：不做任何外部调用。
// 词表大小写无关扫描，技能按小写去重后字典序输出；
// 工作年限取首个模式匹配，缺失为0；教育经历在降级路径下恒为空。
func fallbackAnalyze(text string) *types.FallbackAnalysis {
	lower := strings.ToLower(text)

	return &types.FallbackAnalysis{
		TechnicalSkills:   scanKeywords(lower, technicalSkillKeywords),
		SoftSkills:        scanKeywords(lower, softSkillKeywords),
		YearsOfExperience: extractYears(text),
		Education:         []string{},
		Recommendations: []string{
			"本次结果由本地快速分析生成，建议稍后重试AI深度分析以获取完整的职业方向与简历优化建议。",
		},
		AnalysisDate: time.Now().UTC(),
	}
}

// scanKeywords 在小写文本中扫描词表，返回去重后的有序命中集合
func scanKeywords(lowerText string, vocabulary []string) []string {
	seen := make(map[string]struct{})
	for _, kw := range vocabulary {
		if pattern, ok := keywordPatterns[kw]; ok {
			if pattern.MatchString(lowerText) {
				seen[kw] = struct{}{}
			}
		} else if strings.Contains(lowerText, kw) {
			seen[kw] = struct{}{}
		}
	}

	matches := make([]string, 0, len(seen))
	for kw := range seen {
		matches = append(matches, kw)
	}
	sort.Strings(matches)
	return matches
}

// extractYears 提取工作年限，首个匹配胜出，无匹配返回0
func extractYears(text string) int {
	m := yearsPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	years, err := strconv.Atoi(m[1])
	if err != nil || years < 0 {
		return 0
	}
	return years
}
