package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-coach-go/internal/config"
)

func TestClassifyBlocks(t *testing.T) {
	markdown := "## Title\n- point one\n- point two"
	blocks := ClassifyBlocks(markdown)

	require.Len(t, blocks, 3)
	assert.Equal(t, BlockHeading2, blocks[0].Kind)
	assert.Equal(t, "Title", blocks[0].Text)
	assert.Equal(t, BlockBullet, blocks[1].Kind)
	assert.Equal(t, "point one", blocks[1].Text)
	assert.Equal(t, BlockBullet, blocks[2].Kind)
	assert.Equal(t, "point two", blocks[2].Text)
}

func TestClassifyBlocksCues(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind BlockKind
		text string
	}{
		{"空行", "", BlockSpacer, ""},
		{"纯空白行", "   \t", BlockSpacer, ""},
		{"两个井号", "## 二级标题", BlockHeading2, "二级标题"},
		{"三个井号", "### 三级标题", BlockHeading3, "三级标题"},
		{"四个井号仍是三级", "#### 深层标题", BlockHeading3, "深层标题"},
		{"短横线列表", "- 列表项", BlockBullet, "列表项"},
		{"圆点列表", "• 关键词：Risk Management", BlockBullet, "关键词：Risk Management"},
		{"普通段落", "这是一段普通文本。", BlockParagraph, "这是一段普通文本。"},
		{"单个井号按段落处理", "# 一级标题", BlockParagraph, "# 一级标题"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := ClassifyBlocks(tt.line)
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.kind, blocks[0].Kind)
			assert.Equal(t, tt.text, blocks[0].Text)
		})
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(config.ReportConfig{})

	data, err := r.Render("## 1. 推荐的职业方向\n\n方向一：Risk Controlling\n- 关键词一\n- 关键词二")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "输出必须是PDF字节流")
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer(config.ReportConfig{})
	markdown := "## Title\n- point one\n- point two\n\n正文段落。"

	first, err := r.Render(markdown)
	require.NoError(t, err)
	second, err := r.Render(markdown)
	require.NoError(t, err)

	// 页数与块结构确定，仅创建时间等元数据可能不同
	assert.InDelta(t, len(first), len(second), 64)
}

func TestRenderMissingFontDegrades(t *testing.T) {
	r := NewRenderer(config.ReportConfig{
		FontPath: "/nonexistent/fonts/notosans.ttf",
		FontName: "notosans",
	})

	data, err := r.Render("## Title\nbody text")
	require.NoError(t, err, "字体缺失应降级而非报错")
	assert.NotEmpty(t, data)
}

func TestRenderLongInputPaginates(t *testing.T) {
	r := NewRenderer(config.ReportConfig{})

	var b bytes.Buffer
	for i := 0; i < 120; i++ {
		b.WriteString("- a reasonably long bullet line that forces the layout engine to wrap and paginate\n")
	}
	data, err := r.Render(b.String())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
