// Package analyzer 将简历文本转化为分析结果。
// 首选路径调用外部大模型生成Markdown报告；模型不可用、超时或返回异常时
// 切换到本地确定性降级分析。Analyze 对调用方永不失败。
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
	"resume-coach-go/internal/types"
)

// systemNotice 固定的系统消息，约束模型只输出Markdown
const systemNotice = "You are a professional resume analyzer. Reply ONLY with formatted Markdown as instructed, no extra commentary."

// promptTemplate 固定的分析指令模板，%s处填入简历原文。
// 三个必选章节：职业方向与关键词、各段经历匹配的职位名称（按时间顺序）、
// 每段经历前两条描述的原文/优化后改写。
const promptTemplate = `根据你提供的简历内容，以下将以清晰的 Markdown 形式给出候选人在德国求职市场的分析与优化建议：

---

## 1. 推荐的职业方向与关键词（适用于德国求职平台搜索）

请列出 **3-4** 个职业方向。每个方向使用"方向一 / 二 / 三 …"标题，并在下一行用"关键词："列出 5-8 个德/英关键词，示例：

方向一：Risikomanagement / Financial Risk Controlling
• 关键词：Risk Management, Financial Risk Analyst, Risikocontrolling, VaR/CVaR, FRM, CFA

---

## 2. 各段工作经历匹配的职位名称（德国市场常用术语）

按照时间顺序，对 **每一段** 工作经历先用一行 ` + "`✅ 起止时间 – 职位 – 公司`" + ` 概要，下一行标题"适合的职位名称:"，随后用无序列表列出 3-4 个职位。

---

## 3. 工作经历内容的优化建议（前两条内容重写）

对每段经历，先用 ` + "`◆ 公司 / 职位`" + ` 作为小标题，分两块：
• **原文：** 使用无序列表列出原始前两条描述；
• **优化后：** 用无序列表给出量化、成果导向的改写。

---

请直接输出 Markdown，不要使用代码块或额外说明。

以下为候选人的简历原文：
%s`

// Engine 简历分析引擎
type Engine struct {
	chatModel model.BaseChatModel // 为nil时直接走降级路径
	timeout   time.Duration
	logger    zerolog.Logger
}

// EngineOption 分析引擎的配置选项
type EngineOption func(*Engine)

// WithTimeout 设置模型调用的有界等待时间
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithEngineLogger 配置自定义日志记录器
func WithEngineLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine 创建分析引擎。chatModel可以为nil（未配置API密钥的部署），
// 此时所有请求都走本地降级分析。
func NewEngine(chatModel model.BaseChatModel, options ...EngineOption) *Engine {
	e := &Engine{
		chatModel: chatModel,
		timeout:   30 * time.Second,
		logger:    logger.Logger.With().Str("component", "analysis_engine").Logger(),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// Analyze 分析简历文本，永不返回错误。
// 模型路径的任何失败（网络、配额、空响应、超时）只记录日志，随后落入降级路径。
func (e *Engine) Analyze(ctx context.Context, text string) types.AnalysisResult {
	if e.chatModel != nil {
		markdown, err := e.analyzeWithModel(ctx, text)
		if err == nil {
			return types.NewMarkdownAnalysis(markdown)
		}
		e.logger.Warn().Err(err).Msg("模型分析失败，切换到本地降级分析")
	}

	return types.NewFallbackAnalysis(fallbackAnalyze(text))
}

// analyzeWithModel 调用模型协作方生成Markdown报告
func (e *Engine) analyzeWithModel(ctx context.Context, text string) (markdown string, err error) {
	// 模型客户端内部异常同样归入降级路径，不允许穿透到调用方
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("模型调用发生panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(systemNotice),
		schema.UserMessage(fmt.Sprintf(promptTemplate, text)),
	}

	startTime := time.Now()
	resp, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("模型生成失败: %w", err)
	}

	markdown = strings.TrimSpace(resp.Content)
	// 剥离模型偶尔误加的代码块围栏
	if strings.HasPrefix(markdown, "```") {
		markdown = strings.Trim(markdown, "` \n")
		markdown = strings.TrimPrefix(markdown, "markdown\n")
	}

	if markdown == "" {
		return "", fmt.Errorf("模型返回空内容")
	}

	e.logger.Debug().
		Int("chars", len(markdown)).
		Dur("elapsed", time.Since(startTime)).
		Msg("模型分析完成")

	return markdown, nil
}
