// Package report 将分析结果的Markdown文本排版为可投递的PDF文档。
// 只识别少量块级线索（标题、列表、段落），不做完整Markdown解析。
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/logger"
)

// ErrRenderUnavailable 排版引擎完全不可用时的哨兵错误。
// 字体缺失不属于此类：缺失CJK字体时降级使用内置字体继续渲染。
var ErrRenderUnavailable = errors.New("排版引擎不可用")

// BlockKind 块级样式类别
type BlockKind int

const (
	// BlockSpacer 空行产生的垂直间隔
	BlockSpacer BlockKind = iota
	// BlockHeading2 恰好两个#开头的二级标题
	BlockHeading2
	// BlockHeading3 三个及以上#开头的三级标题
	BlockHeading3
	// BlockBullet "- "或"• "开头的列表项
	BlockBullet
	// BlockParagraph 其余非空行
	BlockParagraph
)

// Block 一个待排版的块：样式类别加去除标记后的文本
type Block struct {
	Kind BlockKind
	Text string
}

// ClassifyBlocks 逐行扫描Markdown文本并归类为块序列。
// 每行先去除首尾空白再判断前缀，分类与排版解耦以便单独验证。
func ClassifyBlocks(markdown string) []Block {
	lines := strings.Split(markdown, "\n")
	blocks := make([]Block, 0, len(lines))

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			blocks = append(blocks, Block{Kind: BlockSpacer})
		case strings.HasPrefix(line, "###"):
			text := strings.TrimSpace(strings.TrimLeft(line, "#"))
			blocks = append(blocks, Block{Kind: BlockHeading3, Text: text})
		case strings.HasPrefix(line, "##"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "##"))
			blocks = append(blocks, Block{Kind: BlockHeading2, Text: text})
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimPrefix(line, "- ")})
		case strings.HasPrefix(line, "• "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimPrefix(line, "• ")})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}

	return blocks
}

// 页面度量，单位pt。Letter纸型配1英寸页边距
const (
	pageMargin     = 72.0
	bodyLineHeight = 15.0
	bulletIndent   = 14.0
)

// Renderer 报告渲染器
type Renderer struct {
	fontPath string
	fontName string
	logger   zerolog.Logger
}

// RendererOption 渲染器配置选项
type RendererOption func(*Renderer)

// WithRendererLogger 配置自定义日志记录器
func WithRendererLogger(l zerolog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = l
	}
}

// NewRenderer 创建报告渲染器。字体路径来自显式配置，
// 文件不存在时记录警告并降级到内置Helvetica（非拉丁字形可能无法显示）。
func NewRenderer(cfg config.ReportConfig, options ...RendererOption) *Renderer {
	r := &Renderer{
		fontPath: cfg.FontPath,
		fontName: cfg.FontName,
		logger:   logger.Logger.With().Str("component", "report_renderer").Logger(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Render 将Markdown文本渲染为多页PDF字节流。
// 渲染是无状态的：同一输入重复渲染产生相同的块结构与页数。
func (r *Renderer) Render(markdown string) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	fontName := r.loadFont(pdf)

	pdf.AddPage()

	for _, block := range ClassifyBlocks(markdown) {
		switch block.Kind {
		case BlockSpacer:
			pdf.Ln(8)
		case BlockHeading2:
			pdf.SetFont(fontName, "B", 16)
			pdf.MultiCell(0, 20, block.Text, "", "L", false)
			pdf.Ln(6)
		case BlockHeading3:
			pdf.SetFont(fontName, "B", 13)
			pdf.MultiCell(0, 17, block.Text, "", "L", false)
			pdf.Ln(4)
		case BlockBullet:
			pdf.SetFont(fontName, "", 11)
			pdf.SetX(pageMargin + bulletIndent)
			pdf.MultiCell(0, bodyLineHeight, "• "+block.Text, "", "L", false)
		case BlockParagraph:
			pdf.SetFont(fontName, "", 11)
			pdf.MultiCell(0, bodyLineHeight, block.Text, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}

	r.logger.Debug().
		Int("pages", pdf.PageCount()).
		Int("bytes", buf.Len()).
		Msg("报告渲染完成")

	return buf.Bytes(), nil
}

// loadFont 加载配置的CJK字体并注册常规与加粗两个样式，
// 返回后续排版应使用的字体族名。加载失败时降级到内置字体。
func (r *Renderer) loadFont(pdf *fpdf.Fpdf) string {
	if r.fontPath == "" {
		return "Helvetica"
	}
	if _, err := os.Stat(r.fontPath); err != nil {
		r.logger.Warn().Err(err).
			Str("font_path", r.fontPath).
			Msg("配置的字体文件不可用，降级使用内置字体")
		return "Helvetica"
	}

	pdf.AddUTF8Font(r.fontName, "", r.fontPath)
	pdf.AddUTF8Font(r.fontName, "B", r.fontPath)
	if pdf.Err() {
		r.logger.Warn().
			Str("font_path", r.fontPath).
			Msg("字体注册失败，降级使用内置字体")
		pdf.ClearError()
		return "Helvetica"
	}

	return r.fontName
}
