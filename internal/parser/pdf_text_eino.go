package parser

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
)

// EinoTextExtractor 使用 Eino PDF Parser 按页提取文本
type EinoTextExtractor struct {
	parser  *pdf.PDFParser
	logger  zerolog.Logger
	timeout time.Duration
}

// EinoTextOption 文本提取器的配置选项
type EinoTextOption func(*EinoTextExtractor)

// WithTextLogger 配置自定义日志记录器
func WithTextLogger(l zerolog.Logger) EinoTextOption {
	return func(e *EinoTextExtractor) {
		e.logger = l
	}
}

// WithTextTimeout 配置单次提取的超时时间
func WithTextTimeout(d time.Duration) EinoTextOption {
	return func(e *EinoTextExtractor) {
		e.timeout = d
	}
}

// NewEinoTextExtractor 初始化文本提取器。
// ToPages为true：解析结果按页返回，拼接顺序即页序
func NewEinoTextExtractor(ctx context.Context, options ...EinoTextOption) (*EinoTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true,
	})
	if err != nil {
		return nil, NewExtractionError("init", "", err)
	}

	extractor := &EinoTextExtractor{
		parser:  p,
		logger:  logger.Logger.With().Str("component", "pdf_text_extractor").Logger(),
		timeout: 30 * time.Second,
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractText 从PDF文件中提取全部页面的文本，按页序拼接。
// 不插入额外分隔符，也不做任何空白规整；单页提取内容保持解析器原样输出。
// 文件无法打开、不是合法PDF或任一页解析失败时返回 ErrExtraction 类错误。
func (e *EinoTextExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return "", NewExtractionError("open", filePath, err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, file, einoParser.WithURI(filePath))
	if err != nil {
		e.logger.Error().Err(err).Str("path", filePath).Msg("PDF文本解析失败")
		return "", NewExtractionError("parse", filePath, err)
	}

	// 每个doc对应一页，按返回顺序拼接
	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.Content)
	}

	text := sb.String()
	e.logger.Debug().
		Str("path", filePath).
		Int("pages", len(docs)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("PDF文本提取完成")

	return text, nil
}
