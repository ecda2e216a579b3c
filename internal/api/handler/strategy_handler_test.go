package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resume-coach-go/internal/storage/models"
	"resume-coach-go/internal/types"
)

type fakeStrategyStore struct {
	resume        *models.Resume
	questionnaire *models.Questionnaire
}

func (f *fakeStrategyStore) GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error) {
	if f.resume == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.resume, nil
}

func (f *fakeStrategyStore) GetQuestionnaire(ctx context.Context, resumeID uint64) (*models.Questionnaire, error) {
	if f.questionnaire == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.questionnaire, nil
}

type strategyMockModel struct {
	content string
	err     error
}

func (m *strategyMockModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.content}, nil
}

func (m *strategyMockModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func strategyTestStore() *fakeStrategyStore {
	return &fakeStrategyStore{
		resume: &models.Resume{ID: 7, Slug: "aaaa0000bbbb1111", FilePath: "/tmp/x.pdf"},
		questionnaire: &models.Questionnaire{
			ResumeID: 7,
			Answers:  datatypes.JSON(`{"target_role":"backend engineer"}`),
		},
	}
}

func TestHandleGenerateModelPath(t *testing.T) {
	mock := &strategyMockModel{content: `{"focus_areas":["量化成果"],"weekly_plan":["投递10个岗位"],"application_targets":["后端岗位"],"networking_tips":["更新LinkedIn"]}`}
	cache := &fakeCache{data: map[string]string{"aaaa0000bbbb1111": "## 已有分析"}}

	h := NewStrategyHandler(strategyTestStore(), mock, &fakeAnalyzer{}, &fakeExtractor{}, cache)

	strategy, err := h.HandleGenerate(context.Background(), "aaaa0000bbbb1111")
	require.NoError(t, err)
	assert.False(t, strategy.Fallback)
	assert.Equal(t, []string{"量化成果"}, strategy.FocusAreas)
	assert.False(t, strategy.GeneratedAt.IsZero())
}

func TestHandleGenerateStripsJSONFences(t *testing.T) {
	mock := &strategyMockModel{content: "```json\n{\"focus_areas\":[\"a\"],\"weekly_plan\":[],\"application_targets\":[],\"networking_tips\":[]}\n```"}
	cache := &fakeCache{data: map[string]string{"aaaa0000bbbb1111": "## 分析"}}

	h := NewStrategyHandler(strategyTestStore(), mock, &fakeAnalyzer{}, &fakeExtractor{}, cache)

	strategy, err := h.HandleGenerate(context.Background(), "aaaa0000bbbb1111")
	require.NoError(t, err)
	assert.False(t, strategy.Fallback)
}

func TestHandleGenerateStaticFallback(t *testing.T) {
	tests := []struct {
		name  string
		model model.BaseChatModel
	}{
		{"模型未配置", nil},
		{"模型报错", &strategyMockModel{err: errors.New("quota")}},
		{"输出不是JSON", &strategyMockModel{content: "抱歉，我无法生成"}},
	}

	analyzer := &fakeAnalyzer{result: types.NewMarkdownAnalysis("## 分析")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStrategyHandler(strategyTestStore(), tt.model, analyzer, &fakeExtractor{text: "body"}, nil)

			strategy, err := h.HandleGenerate(context.Background(), "aaaa0000bbbb1111")
			require.NoError(t, err)
			assert.True(t, strategy.Fallback)
			assert.NotEmpty(t, strategy.FocusAreas)
		})
	}
}

func TestHandleGenerateRequiresQuestionnaire(t *testing.T) {
	store := strategyTestStore()
	store.questionnaire = nil

	h := NewStrategyHandler(store, nil, &fakeAnalyzer{}, &fakeExtractor{}, nil)

	_, err := h.HandleGenerate(context.Background(), "aaaa0000bbbb1111")
	require.Error(t, err)
}
