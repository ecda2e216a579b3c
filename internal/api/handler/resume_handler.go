// Package handler 实现各业务操作，供路由层调用。
// 方法只依赖context与普通参数，便于脱离HTTP栈单独测试。
package handler

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resume-coach-go/internal/artifact"
	"resume-coach-go/internal/auth"
	"resume-coach-go/internal/config"
	"resume-coach-go/internal/constants"
	"resume-coach-go/internal/logger"
	"resume-coach-go/internal/storage"
	"resume-coach-go/internal/storage/models"
	"resume-coach-go/internal/types"
)

// ErrResumeNotFound 简历不存在
var ErrResumeNotFound = gorm.ErrRecordNotFound

// TextExtractor 提取简历全文
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// ImageExtractor 提取简历中的第一张嵌入图片
type ImageExtractor interface {
	ExtractFirstImage(ctx context.Context, filePath string) ([]byte, string, error)
}

// Analyzer 简历分析，永不失败
type Analyzer interface {
	Analyze(ctx context.Context, text string) types.AnalysisResult
}

// ResumeStore 简历相关的数据库操作
type ResumeStore interface {
	GetOrCreateUser(ctx context.Context, email string) (*models.User, error)
	CreateResume(ctx context.Context, resume *models.Resume) error
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
	MarkResumeProcessed(ctx context.Context, slug string) error
	SetResumeObjectPath(ctx context.Context, slug string, objectPath string) error
}

// AnalysisCache 分析Markdown缓存
type AnalysisCache interface {
	GetCachedAnalysis(ctx context.Context, slug string) (string, error)
	SetCachedAnalysis(ctx context.Context, slug string, markdown string) error
}

// Archiver 原始简历对象归档
type Archiver interface {
	ArchiveResume(ctx context.Context, slug, filename string, data []byte) (string, error)
}

// JobPublisher 发布报告投递任务
type JobPublisher interface {
	PublishReportJob(ctx context.Context, job storage.ReportJob) error
}

// Uploads 本地上传目录
type Uploads interface {
	SaveUpload(slug, filename string, data []byte) (string, error)
}

// ResumeHandler 简历处理器，协调上传、分析与派生文件流程
type ResumeHandler struct {
	cfg            *config.Config
	store          ResumeStore
	cache          AnalysisCache // 可为nil
	archive        Archiver      // 可为nil，归档是尽力而为
	jobs           JobPublisher  // 可为nil，此时投递端点不可用
	uploads        Uploads
	extractor      TextExtractor
	imageExtractor ImageExtractor
	artifacts      *artifact.Cache
	analyzer       Analyzer
	tokens         *auth.TokenService
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(
	cfg *config.Config,
	store ResumeStore,
	cache AnalysisCache,
	archive Archiver,
	jobs JobPublisher,
	uploads Uploads,
	extractor TextExtractor,
	imageExtractor ImageExtractor,
	artifacts *artifact.Cache,
	analyzer Analyzer,
	tokens *auth.TokenService,
) *ResumeHandler {
	return &ResumeHandler{
		cfg:            cfg,
		store:          store,
		cache:          cache,
		archive:        archive,
		jobs:           jobs,
		uploads:        uploads,
		extractor:      extractor,
		imageExtractor: imageExtractor,
		artifacts:      artifacts,
		analyzer:       analyzer,
		tokens:         tokens,
	}
}

// UploadResponse 上传响应
type UploadResponse struct {
	Slug   string `json:"slug"`
	Status string `json:"status"`
	Token  string `json:"token"`
}

// newSlug 生成16位十六进制的对外简历标识
func newSlug() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("生成slug失败: %w", err)
	}
	return hex.EncodeToString(id[:])[:constants.SlugLength], nil
}

// HandleUpload 处理简历上传：保存文件、归档、建档并签发访问令牌
func (h *ResumeHandler) HandleUpload(ctx context.Context, email, filename string, data []byte) (*UploadResponse, error) {
	if email == "" {
		return nil, fmt.Errorf("邮箱不能为空")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("只接受PDF文件")
	}
	maxSize := h.cfg.Upload.MaxSizeMB * 1024 * 1024
	if len(data) == 0 || len(data) > maxSize {
		return nil, fmt.Errorf("文件大小必须在1字节到%dMB之间", h.cfg.Upload.MaxSizeMB)
	}

	slug, err := newSlug()
	if err != nil {
		return nil, err
	}

	user, err := h.store.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	filePath, err := h.uploads.SaveUpload(slug, filename, data)
	if err != nil {
		return nil, err
	}

	resume := &models.Resume{
		UserID:           user.ID,
		Slug:             slug,
		OriginalFilename: filename,
		FilePath:         filePath,
		Status:           constants.StatusUploaded,
		UploadedAt:       time.Now(),
	}
	if err := h.store.CreateResume(ctx, resume); err != nil {
		return nil, err
	}

	// 归档失败只影响灾备副本，不阻塞上传
	if h.archive != nil {
		if objectPath, archiveErr := h.archive.ArchiveResume(ctx, slug, filename, data); archiveErr != nil {
			logger.Warn().Err(archiveErr).Str("slug", slug).Msg("简历归档失败")
		} else if err := h.store.SetResumeObjectPath(ctx, slug, objectPath); err != nil {
			logger.Warn().Err(err).Str("slug", slug).Msg("记录归档路径失败")
		}
	}

	token, err := h.tokens.CreateToken(slug, email)
	if err != nil {
		return nil, err
	}

	return &UploadResponse{
		Slug:   slug,
		Status: constants.StatusUploaded,
		Token:  token,
	}, nil
}

// ResumeResponse 简历元数据响应
type ResumeResponse struct {
	Slug             string     `json:"slug"`
	OriginalFilename string     `json:"original_filename"`
	Status           string     `json:"status"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// HandleGetResume 返回简历元数据
func (h *ResumeHandler) HandleGetResume(ctx context.Context, slug string) (*ResumeResponse, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &ResumeResponse{
		Slug:             resume.Slug,
		OriginalFilename: resume.OriginalFilename,
		Status:           resume.Status,
		UploadedAt:       resume.UploadedAt,
		ProcessedAt:      resume.ProcessedAt,
	}, nil
}

// AnalyzeResponse 分析响应，两种形态二选一
type AnalyzeResponse struct {
	Kind     string                  `json:"kind"`
	Markdown string                  `json:"markdown,omitempty"`
	Fallback *types.FallbackAnalysis `json:"fallback,omitempty"`
	Cached   bool                    `json:"cached"`
}

// HandleAnalyze 分析简历。缓存命中直接返回；
// 未命中时提取文本并分析，模型路径的结果写入缓存并标记简历已处理
func (h *ResumeHandler) HandleAnalyze(ctx context.Context, slug string) (*AnalyzeResponse, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		cached, cacheErr := h.cache.GetCachedAnalysis(ctx, slug)
		if cacheErr == nil && cached != "" {
			return &AnalyzeResponse{
				Kind:     string(types.AnalysisKindMarkdown),
				Markdown: cached,
				Cached:   true,
			}, nil
		}
		if cacheErr != nil && cacheErr != storage.ErrNotFound {
			logger.Warn().Err(cacheErr).Str("slug", slug).Msg("读取分析缓存失败")
		}
	}

	text, err := h.extractor.ExtractText(ctx, resume.FilePath)
	if err != nil {
		return nil, err
	}

	result := h.analyzer.Analyze(ctx, text)

	if err := h.store.MarkResumeProcessed(ctx, slug); err != nil {
		logger.Warn().Err(err).Str("slug", slug).Msg("更新简历状态失败")
	}

	if result.IsMarkdown() {
		// 只缓存模型路径的结果，降级结果留待下次重试模型分析
		if h.cache != nil {
			if err := h.cache.SetCachedAnalysis(ctx, slug, result.Markdown); err != nil {
				logger.Warn().Err(err).Str("slug", slug).Msg("写入分析缓存失败")
			}
		}
		return &AnalyzeResponse{
			Kind:     string(types.AnalysisKindMarkdown),
			Markdown: result.Markdown,
		}, nil
	}

	return &AnalyzeResponse{
		Kind:     string(types.AnalysisKindFallback),
		Fallback: result.Fallback,
	}, nil
}

// HandleProfilePicture 返回简历头像的缓存文件路径。
// 首次请求时提取第一张嵌入图片并落盘，之后直接复用缓存文件
func (h *ResumeHandler) HandleProfilePicture(ctx context.Context, slug string) (string, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(resume.FilePath), filepath.Ext(resume.FilePath))
	key := artifact.Key(baseName, strconv.FormatUint(resume.ID, 10), constants.ArtifactKindProfilePicture)

	return h.artifacts.GetOrCreate(key, func() ([]byte, string, error) {
		return h.imageExtractor.ExtractFirstImage(ctx, resume.FilePath)
	})
}

// HandleSendPDF 将报告投递任务发布到队列，由投递worker异步渲染并发送邮件
func (h *ResumeHandler) HandleSendPDF(ctx context.Context, slug, email string) error {
	if h.jobs == nil {
		return fmt.Errorf("报告投递服务不可用")
	}
	if email == "" {
		return fmt.Errorf("收件邮箱不能为空")
	}

	if _, err := h.store.GetResumeBySlug(ctx, slug); err != nil {
		return err
	}

	return h.jobs.PublishReportJob(ctx, storage.ReportJob{
		Slug:        slug,
		Email:       email,
		RequestedAt: time.Now(),
	})
}
