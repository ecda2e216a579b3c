// Package delivery 报告投递worker：消费投递队列，
// 为每个任务生成分析报告PDF并通过邮件发送。
package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
	"resume-coach-go/internal/storage"
	"resume-coach-go/internal/storage/models"
	"resume-coach-go/internal/types"
)

// TextExtractor 提取简历全文
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// Analyzer 简历分析，永不失败
type Analyzer interface {
	Analyze(ctx context.Context, text string) types.AnalysisResult
}

// Renderer 将Markdown排版为PDF
type Renderer interface {
	Render(markdown string) ([]byte, error)
}

// ReportSender 投递报告邮件
type ReportSender interface {
	SendReport(ctx context.Context, to string, reportPDF []byte) error
}

// ResumeStore 查询简历记录
type ResumeStore interface {
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
}

// AnalysisCache 分析Markdown缓存
type AnalysisCache interface {
	GetCachedAnalysis(ctx context.Context, slug string) (string, error)
	SetCachedAnalysis(ctx context.Context, slug string, markdown string) error
}

// JobSource 投递任务来源
type JobSource interface {
	ConsumeReportJobs(ctx context.Context, handler func(ctx context.Context, job storage.ReportJob) error) error
}

// Worker 报告投递worker
type Worker struct {
	jobs      JobSource
	resumes   ResumeStore
	cache     AnalysisCache // 可为nil，此时每个任务都重新分析
	extractor TextExtractor
	analyzer  Analyzer
	renderer  Renderer
	sender    ReportSender
	logger    zerolog.Logger
}

// NewWorker 创建报告投递worker
func NewWorker(jobs JobSource, resumes ResumeStore, cache AnalysisCache,
	extractor TextExtractor, analyzer Analyzer, renderer Renderer, sender ReportSender) *Worker {
	return &Worker{
		jobs:      jobs,
		resumes:   resumes,
		cache:     cache,
		extractor: extractor,
		analyzer:  analyzer,
		renderer:  renderer,
		sender:    sender,
		logger:    logger.Logger.With().Str("component", "delivery_worker").Logger(),
	}
}

// Run 消费投递队列直到ctx取消
func (w *Worker) Run(ctx context.Context) error {
	return w.jobs.ConsumeReportJobs(ctx, w.HandleJob)
}

// HandleJob 处理单个投递任务：取分析Markdown、渲染PDF、发送邮件。
// 返回错误时消息会重新入队
func (w *Worker) HandleJob(ctx context.Context, job storage.ReportJob) error {
	resume, err := w.resumes.GetResumeBySlug(ctx, job.Slug)
	if err != nil {
		return fmt.Errorf("查询简历 %s 失败: %w", job.Slug, err)
	}

	markdown, err := w.analysisMarkdown(ctx, resume)
	if err != nil {
		return err
	}

	reportPDF, err := w.renderer.Render(markdown)
	if err != nil {
		return fmt.Errorf("渲染报告失败: %w", err)
	}

	if err := w.sender.SendReport(ctx, job.Email, reportPDF); err != nil {
		return fmt.Errorf("发送报告失败: %w", err)
	}

	w.logger.Info().
		Str("slug", job.Slug).
		Str("email", job.Email).
		Msg("报告投递完成")
	return nil
}

// analysisMarkdown 获取简历的分析Markdown：
// 缓存命中直接使用，否则重新提取并分析，模型路径的结果写回缓存
func (w *Worker) analysisMarkdown(ctx context.Context, resume *models.Resume) (string, error) {
	if w.cache != nil {
		cached, err := w.cache.GetCachedAnalysis(ctx, resume.Slug)
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && err != storage.ErrNotFound {
			w.logger.Warn().Err(err).Str("slug", resume.Slug).Msg("读取分析缓存失败，重新分析")
		}
	}

	text, err := w.extractor.ExtractText(ctx, resume.FilePath)
	if err != nil {
		return "", fmt.Errorf("提取简历文本失败: %w", err)
	}

	result := w.analyzer.Analyze(ctx, text)
	if result.IsMarkdown() {
		if w.cache != nil {
			if err := w.cache.SetCachedAnalysis(ctx, resume.Slug, result.Markdown); err != nil {
				w.logger.Warn().Err(err).Str("slug", resume.Slug).Msg("写入分析缓存失败")
			}
		}
		return result.Markdown, nil
	}

	return FallbackMarkdown(result.Fallback), nil
}

// FallbackMarkdown 将降级分析记录格式化为可渲染的Markdown文本
func FallbackMarkdown(fb *types.FallbackAnalysis) string {
	var b strings.Builder

	b.WriteString("## 简历快速分析\n\n")
	fmt.Fprintf(&b, "工作年限：%d 年\n\n", fb.YearsOfExperience)

	b.WriteString("### 技术技能\n")
	writeBulletList(&b, fb.TechnicalSkills)

	b.WriteString("\n### 软技能\n")
	writeBulletList(&b, fb.SoftSkills)

	b.WriteString("\n### 建议\n")
	writeBulletList(&b, fb.Recommendations)

	return b.String()
}

func writeBulletList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- 未识别\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
