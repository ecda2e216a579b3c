package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-coach-go/internal/storage"
	"resume-coach-go/internal/storage/models"
	"resume-coach-go/internal/types"
)

type stubResumeStore struct {
	resume *models.Resume
	err    error
}

func (s *stubResumeStore) GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error) {
	return s.resume, s.err
}

type stubCache struct {
	data map[string]string
	sets int
}

func (s *stubCache) GetCachedAnalysis(ctx context.Context, slug string) (string, error) {
	if v, ok := s.data[slug]; ok {
		return v, nil
	}
	return "", storage.ErrNotFound
}

func (s *stubCache) SetCachedAnalysis(ctx context.Context, slug string, markdown string) error {
	s.sets++
	s.data[slug] = markdown
	return nil
}

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubAnalyzer struct {
	result types.AnalysisResult
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) types.AnalysisResult {
	return s.result
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (s *stubRenderer) Render(markdown string) ([]byte, error) {
	return s.pdf, s.err
}

type stubSender struct {
	to    string
	pdf   []byte
	err   error
	calls int
}

func (s *stubSender) SendReport(ctx context.Context, to string, reportPDF []byte) error {
	s.calls++
	s.to = to
	s.pdf = reportPDF
	return s.err
}

func testJob() storage.ReportJob {
	return storage.ReportJob{
		Slug:        "a1b2c3d4e5f60718",
		Email:       "user@example.com",
		RequestedAt: time.Now(),
	}
}

func testResume() *models.Resume {
	return &models.Resume{
		ID:       1,
		Slug:     "a1b2c3d4e5f60718",
		FilePath: "/uploads/a1b2c3d4e5f60718_resume.pdf",
	}
}

func TestHandleJobWithCachedAnalysis(t *testing.T) {
	cache := &stubCache{data: map[string]string{"a1b2c3d4e5f60718": "## 缓存的分析"}}
	extractor := &stubExtractor{}
	sender := &stubSender{}

	w := NewWorker(nil, &stubResumeStore{resume: testResume()}, cache,
		extractor, &stubAnalyzer{}, &stubRenderer{pdf: []byte("%PDF-")}, sender)

	require.NoError(t, w.HandleJob(context.Background(), testJob()))
	assert.Equal(t, 0, extractor.calls, "缓存命中时不应重新提取")
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "user@example.com", sender.to)
	assert.Equal(t, []byte("%PDF-"), sender.pdf)
}

func TestHandleJobCacheMissAnalyzesAndCaches(t *testing.T) {
	cache := &stubCache{data: map[string]string{}}
	extractor := &stubExtractor{text: "resume body"}
	analyzer := &stubAnalyzer{result: types.NewMarkdownAnalysis("## 模型分析")}
	sender := &stubSender{}

	w := NewWorker(nil, &stubResumeStore{resume: testResume()}, cache,
		extractor, analyzer, &stubRenderer{pdf: []byte("%PDF-")}, sender)

	require.NoError(t, w.HandleJob(context.Background(), testJob()))
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, 1, cache.sets, "模型路径的结果应写回缓存")
	assert.Equal(t, "## 模型分析", cache.data["a1b2c3d4e5f60718"])
}

func TestHandleJobFallbackNotCached(t *testing.T) {
	cache := &stubCache{data: map[string]string{}}
	fb := &types.FallbackAnalysis{
		TechnicalSkills:   []string{"python"},
		SoftSkills:        []string{"leadership"},
		YearsOfExperience: 3,
		Recommendations:   []string{"稍后重试"},
	}
	analyzer := &stubAnalyzer{result: types.NewFallbackAnalysis(fb)}
	sender := &stubSender{}

	w := NewWorker(nil, &stubResumeStore{resume: testResume()}, cache,
		&stubExtractor{text: "body"}, analyzer, &stubRenderer{pdf: []byte("%PDF-")}, sender)

	require.NoError(t, w.HandleJob(context.Background(), testJob()))
	assert.Equal(t, 0, cache.sets, "降级结果不应缓存")
	assert.Equal(t, 1, sender.calls)
}

func TestHandleJobErrors(t *testing.T) {
	t.Run("简历不存在", func(t *testing.T) {
		w := NewWorker(nil, &stubResumeStore{err: errors.New("not found")}, nil,
			&stubExtractor{}, &stubAnalyzer{}, &stubRenderer{}, &stubSender{})
		require.Error(t, w.HandleJob(context.Background(), testJob()))
	})

	t.Run("提取失败", func(t *testing.T) {
		w := NewWorker(nil, &stubResumeStore{resume: testResume()}, nil,
			&stubExtractor{err: errors.New("corrupt pdf")}, &stubAnalyzer{}, &stubRenderer{}, &stubSender{})
		require.Error(t, w.HandleJob(context.Background(), testJob()))
	})

	t.Run("发送失败", func(t *testing.T) {
		analyzer := &stubAnalyzer{result: types.NewMarkdownAnalysis("## ok")}
		w := NewWorker(nil, &stubResumeStore{resume: testResume()}, nil,
			&stubExtractor{text: "body"}, analyzer, &stubRenderer{pdf: []byte("x")},
			&stubSender{err: errors.New("smtp down")})
		require.Error(t, w.HandleJob(context.Background(), testJob()))
	})
}

func TestFallbackMarkdown(t *testing.T) {
	fb := &types.FallbackAnalysis{
		TechnicalSkills:   []string{"docker", "python"},
		SoftSkills:        []string{},
		YearsOfExperience: 5,
		Recommendations:   []string{"稍后重试AI深度分析"},
	}

	markdown := FallbackMarkdown(fb)
	assert.Contains(t, markdown, "## 简历快速分析")
	assert.Contains(t, markdown, "工作年限：5 年")
	assert.Contains(t, markdown, "- python")
	assert.Contains(t, markdown, "- 未识别", "空技能列表应有占位")
}
