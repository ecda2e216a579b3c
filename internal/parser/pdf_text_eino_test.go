package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoTextExtractor(ctx)
	require.NoError(t, err, "创建文本提取器不应返回错误")
	require.NotNil(t, extractor)
	require.NotNil(t, extractor.parser)

	custom, err := NewEinoTextExtractor(ctx, WithTextTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, custom.timeout)
}

func TestExtractTextPageOrder(t *testing.T) {
	ctx := context.Background()
	path := writeTextPDF(t, "Alpha first page marker.", "Beta second page marker.")

	extractor, err := NewEinoTextExtractor(ctx)
	require.NoError(t, err)

	text, err := extractor.ExtractText(ctx, path)
	require.NoError(t, err, "合法PDF的文本提取不应失败")
	require.NotEmpty(t, text)

	first := strings.Index(text, "Alpha")
	second := strings.Index(text, "Beta")
	require.GreaterOrEqual(t, first, 0, "第一页文本应出现在结果中")
	require.GreaterOrEqual(t, second, 0, "第二页文本应出现在结果中")
	assert.Less(t, first, second, "拼接必须保持页序")
}

func TestExtractTextIdempotent(t *testing.T) {
	ctx := context.Background()
	path := writeTextPDF(t, "stable content")

	extractor, err := NewEinoTextExtractor(ctx)
	require.NoError(t, err)

	text1, err := extractor.ExtractText(ctx, path)
	require.NoError(t, err)
	text2, err := extractor.ExtractText(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, text1, text2, "同一文件两次提取结果必须一致")
}

func TestExtractTextErrors(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoTextExtractor(ctx)
	require.NoError(t, err)

	t.Run("文件不存在", func(t *testing.T) {
		_, err := extractor.ExtractText(ctx, "no/such/file.pdf")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("不是合法PDF", func(t *testing.T) {
		path := writeJunkFile(t)
		_, err := extractor.ExtractText(ctx, path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExtraction)
		assert.NotErrorIs(t, err, ErrNoImage)
	})
}
