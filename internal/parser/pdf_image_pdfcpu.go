package parser

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
)

// PdfcpuImageExtractor 使用 pdfcpu 提取PDF中的嵌入图片
type PdfcpuImageExtractor struct {
	conf   *model.Configuration
	logger zerolog.Logger
}

// PdfcpuImageOption 图片提取器的配置选项
type PdfcpuImageOption func(*PdfcpuImageExtractor)

// WithImageLogger 配置自定义日志记录器
func WithImageLogger(l zerolog.Logger) PdfcpuImageOption {
	return func(e *PdfcpuImageExtractor) {
		e.logger = l
	}
}

// NewPdfcpuImageExtractor 初始化图片提取器
func NewPdfcpuImageExtractor(options ...PdfcpuImageOption) *PdfcpuImageExtractor {
	conf := model.NewDefaultConfiguration()
	// 宽松校验，容忍常见生成器产出的轻微不规范文档
	conf.ValidationMode = model.ValidationRelaxed

	extractor := &PdfcpuImageExtractor{
		conf:   conf,
		logger: logger.Logger.With().Str("component", "pdf_image_extractor").Logger(),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractFirstImage 返回文档中第一张非空嵌入图片的原始编码字节和原生格式扩展名。
// 顺序定义：页号升序，页内按对象号升序。不做任何转码。
// 文档无法打开或解析时返回 ErrExtraction；合法文档但没有图片时返回 ErrNoImage。
func (e *PdfcpuImageExtractor) ExtractFirstImage(ctx context.Context, filePath string) ([]byte, string, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, "", NewExtractionError("open", filePath, err)
	}
	defer file.Close()

	pageImages, err := api.ExtractImagesRaw(file, nil, e.conf)
	if err != nil {
		e.logger.Error().Err(err).Str("path", filePath).Msg("PDF图片提取失败")
		return nil, "", NewExtractionError("extract_image", filePath, err)
	}

	// pdfcpu按页返回map[objNr]Image，map无序，展开后按(页号,对象号)排序
	// 得到确定性的"第一张"
	var images []model.Image
	for _, m := range pageImages {
		for _, img := range m {
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].PageNr != images[j].PageNr {
			return images[i].PageNr < images[j].PageNr
		}
		return images[i].ObjNr < images[j].ObjNr
	})

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, "", NewExtractionError("extract_image", filePath, err)
		}

		data, err := io.ReadAll(img)
		if err != nil {
			return nil, "", NewExtractionError("read_image", filePath, err)
		}
		if len(data) == 0 {
			continue
		}

		e.logger.Debug().
			Str("path", filePath).
			Int("page", img.PageNr).
			Int("obj", img.ObjNr).
			Str("format", img.FileType).
			Int("bytes", len(data)).
			Dur("elapsed", time.Since(startTime)).
			Msg("找到首张嵌入图片")

		return data, img.FileType, nil
	}

	return nil, "", NewNoImageError(filePath)
}
