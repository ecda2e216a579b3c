package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-coach-go/internal/types"
)

// mockChatModel 可编程的模型桩
type mockChatModel struct {
	content string
	err     error
	panics  bool
	calls   int
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.panics {
		panic("mock model exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.content}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestAnalyzeModelPath(t *testing.T) {
	mock := &mockChatModel{content: "## 1. 推荐的职业方向与关键词\n- 方向一"}
	engine := NewEngine(mock)

	result := engine.Analyze(context.Background(), "resume text")

	require.Equal(t, types.AnalysisKindMarkdown, result.Kind)
	assert.True(t, result.IsMarkdown())
	assert.Contains(t, result.Markdown, "推荐的职业方向")
	assert.Nil(t, result.Fallback)
	assert.Equal(t, 1, mock.calls)
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	mock := &mockChatModel{content: "```markdown\n## 标题\n内容\n```"}
	engine := NewEngine(mock)

	result := engine.Analyze(context.Background(), "text")
	require.Equal(t, types.AnalysisKindMarkdown, result.Kind)
	assert.False(t, len(result.Markdown) == 0)
	assert.NotContains(t, result.Markdown, "```")
}

func TestAnalyzeFallsBackOnError(t *testing.T) {
	mock := &mockChatModel{err: errors.New("quota exceeded")}
	engine := NewEngine(mock)

	result := engine.Analyze(context.Background(), "5 years of experience with Python")

	require.Equal(t, types.AnalysisKindFallback, result.Kind)
	require.NotNil(t, result.Fallback)
	assert.Equal(t, 5, result.Fallback.YearsOfExperience)
	assert.Contains(t, result.Fallback.TechnicalSkills, "python")
}

func TestAnalyzeFallsBackOnEmptyResponse(t *testing.T) {
	mock := &mockChatModel{content: "   \n  "}
	engine := NewEngine(mock)

	result := engine.Analyze(context.Background(), "text")
	assert.Equal(t, types.AnalysisKindFallback, result.Kind)
}

func TestAnalyzeFallsBackOnPanic(t *testing.T) {
	mock := &mockChatModel{panics: true}
	engine := NewEngine(mock)

	// 模型客户端panic也不允许穿透
	var result types.AnalysisResult
	require.NotPanics(t, func() {
		result = engine.Analyze(context.Background(), "text")
	})
	assert.Equal(t, types.AnalysisKindFallback, result.Kind)
}

func TestAnalyzeWithoutModel(t *testing.T) {
	engine := NewEngine(nil)

	result := engine.Analyze(context.Background(), "")
	require.Equal(t, types.AnalysisKindFallback, result.Kind)
	assert.GreaterOrEqual(t, result.Fallback.YearsOfExperience, 0)
}

func TestAnalyzeNeverFailsForArbitraryInput(t *testing.T) {
	engine := NewEngine(&mockChatModel{err: errors.New("down")}, WithTimeout(time.Second))

	inputs := []string{"", " ", "\x00\xff", "纯中文简历内容", string(make([]byte, 1<<16))}
	for _, input := range inputs {
		require.NotPanics(t, func() {
			result := engine.Analyze(context.Background(), input)
			assert.Equal(t, types.AnalysisKindFallback, result.Kind)
		})
	}
}
