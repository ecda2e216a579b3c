package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-coach-go/internal/logger"
	"resume-coach-go/internal/storage/models"
)

// strategyPromptTemplate 求职策略生成指令。
// 两个%s依次为分析结论与问卷答案JSON，要求模型只输出JSON
const strategyPromptTemplate = `你是一位资深求职教练。请基于以下候选人的简历分析结论和求职问卷答案，制定一份个性化的求职策略。

严格按如下JSON结构输出，不要添加任何额外文字或代码块围栏：
{
  "focus_areas": ["..."],
  "weekly_plan": ["..."],
  "application_targets": ["..."],
  "networking_tips": ["..."]
}

简历分析结论：
%s

问卷答案：
%s`

// Strategy 求职策略
type Strategy struct {
	FocusAreas         []string  `json:"focus_areas"`
	WeeklyPlan         []string  `json:"weekly_plan"`
	ApplicationTargets []string  `json:"application_targets"`
	NetworkingTips     []string  `json:"networking_tips"`
	Fallback           bool      `json:"fallback"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// StrategyStore 策略生成所需的数据读取
type StrategyStore interface {
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
	GetQuestionnaire(ctx context.Context, resumeID uint64) (*models.Questionnaire, error)
}

// StrategyHandler 求职策略处理器。
// 模型不可用或输出不合法时返回静态的通用策略，与分析引擎同样永不让请求失败
type StrategyHandler struct {
	store     StrategyStore
	chatModel model.BaseChatModel // 可为nil
	analyzer  Analyzer
	extractor TextExtractor
	cache     AnalysisCache // 复用分析缓存读取已有结论，可为nil
	timeout   time.Duration
}

// NewStrategyHandler 创建策略处理器
func NewStrategyHandler(store StrategyStore, chatModel model.BaseChatModel,
	analyzer Analyzer, extractor TextExtractor, cache AnalysisCache) *StrategyHandler {
	return &StrategyHandler{
		store:     store,
		chatModel: chatModel,
		analyzer:  analyzer,
		extractor: extractor,
		cache:     cache,
		timeout:   30 * time.Second,
	}
}

// HandleGenerate 生成求职策略
func (h *StrategyHandler) HandleGenerate(ctx context.Context, slug string) (*Strategy, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	q, err := h.store.GetQuestionnaire(ctx, resume.ID)
	if err != nil {
		return nil, fmt.Errorf("生成策略前需要先提交问卷: %w", err)
	}

	analysisText, err := h.analysisText(ctx, resume)
	if err != nil {
		return nil, err
	}

	if h.chatModel != nil {
		strategy, modelErr := h.generateWithModel(ctx, analysisText, string(q.Answers))
		if modelErr == nil {
			return strategy, nil
		}
		logger.Warn().Err(modelErr).Str("slug", slug).Msg("模型生成策略失败，返回静态策略")
	}

	return staticStrategy(), nil
}

// analysisText 取得简历的分析结论：优先用缓存的Markdown，否则现场分析
func (h *StrategyHandler) analysisText(ctx context.Context, resume *models.Resume) (string, error) {
	if h.cache != nil {
		if cached, err := h.cache.GetCachedAnalysis(ctx, resume.Slug); err == nil && cached != "" {
			return cached, nil
		}
	}

	text, err := h.extractor.ExtractText(ctx, resume.FilePath)
	if err != nil {
		return "", err
	}

	result := h.analyzer.Analyze(ctx, text)
	if result.IsMarkdown() {
		return result.Markdown, nil
	}

	summary, err := json.Marshal(result.Fallback)
	if err != nil {
		return "", fmt.Errorf("序列化降级分析失败: %w", err)
	}
	return string(summary), nil
}

// generateWithModel 调用模型生成策略JSON
func (h *StrategyHandler) generateWithModel(ctx context.Context, analysisText, answersJSON string) (strategy *Strategy, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("模型调用发生panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(strategyPromptTemplate, analysisText, answersJSON)),
	})
	if err != nil {
		return nil, fmt.Errorf("模型生成失败: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	if strings.HasPrefix(content, "```") {
		content = strings.Trim(content, "` \n")
		content = strings.TrimPrefix(content, "json\n")
	}

	var s Strategy
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("策略JSON解析失败: %w", err)
	}
	if len(s.FocusAreas) == 0 {
		return nil, fmt.Errorf("策略缺少重点方向")
	}

	s.Fallback = false
	s.GeneratedAt = time.Now().UTC()
	return &s, nil
}

// staticStrategy 模型不可用时的通用策略
func staticStrategy() *Strategy {
	return &Strategy{
		FocusAreas: []string{
			"完善简历中的量化成果描述",
			"针对目标岗位定制关键词",
		},
		WeeklyPlan: []string{
			"每周投递10-15个匹配岗位",
			"每周联系2-3位目标公司的在职人士",
		},
		ApplicationTargets: []string{
			"优先申请与既有经验高度匹配的岗位",
		},
		NetworkingTips: []string{
			"保持LinkedIn资料与简历一致并定期更新",
		},
		Fallback:    true,
		GeneratedAt: time.Now().UTC(),
	}
}
