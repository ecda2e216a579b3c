package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resume-coach-go/internal/storage/models"
)

// QuestionnaireStore 问卷数据库操作
type QuestionnaireStore interface {
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
	UpsertQuestionnaire(ctx context.Context, resumeID uint64, answers json.RawMessage) (*models.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, resumeID uint64) (*models.Questionnaire, error)
}

// QuestionnaireHandler 求职问卷处理器
type QuestionnaireHandler struct {
	store QuestionnaireStore
}

// NewQuestionnaireHandler 创建问卷处理器
func NewQuestionnaireHandler(store QuestionnaireStore) *QuestionnaireHandler {
	return &QuestionnaireHandler{store: store}
}

// QuestionnaireResponse 问卷响应
type QuestionnaireResponse struct {
	ResumeSlug string          `json:"resume_slug"`
	Answers    json.RawMessage `json:"answers"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HandleSubmit 保存问卷答案，重复提交覆盖旧答案
func (h *QuestionnaireHandler) HandleSubmit(ctx context.Context, slug string, answers json.RawMessage) (*QuestionnaireResponse, error) {
	if len(answers) == 0 || !json.Valid(answers) {
		return nil, fmt.Errorf("问卷答案必须是合法的JSON")
	}

	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	q, err := h.store.UpsertQuestionnaire(ctx, resume.ID, answers)
	if err != nil {
		return nil, err
	}

	return &QuestionnaireResponse{
		ResumeSlug: slug,
		Answers:    json.RawMessage(q.Answers),
		UpdatedAt:  q.UpdatedAt,
	}, nil
}

// HandleGet 查询简历对应的问卷
func (h *QuestionnaireHandler) HandleGet(ctx context.Context, slug string) (*QuestionnaireResponse, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	q, err := h.store.GetQuestionnaire(ctx, resume.ID)
	if err != nil {
		return nil, err
	}

	return &QuestionnaireResponse{
		ResumeSlug: slug,
		Answers:    json.RawMessage(q.Answers),
		UpdatedAt:  q.UpdatedAt,
	}, nil
}
