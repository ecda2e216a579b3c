package handler

import (
	"context"

	"resume-coach-go/internal/payment"
	"resume-coach-go/internal/storage/models"
)

// PaymentIntents 支付意图的创建与查询
type PaymentIntents interface {
	CreateIntent(ctx context.Context, slug string) (*payment.Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (*payment.Intent, string, error)
}

// PaymentStore 支付记录的数据库操作
type PaymentStore interface {
	GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status string) error
}

// PaymentHandler 支付处理器
type PaymentHandler struct {
	intents PaymentIntents
	store   PaymentStore
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(intents PaymentIntents, store PaymentStore) *PaymentHandler {
	return &PaymentHandler{intents: intents, store: store}
}

// HandleCreate 为指定简历创建支付意图并落库
func (h *PaymentHandler) HandleCreate(ctx context.Context, slug string) (*payment.Intent, error) {
	resume, err := h.store.GetResumeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	intent, err := h.intents.CreateIntent(ctx, slug)
	if err != nil {
		return nil, err
	}

	record := &models.Payment{
		ResumeID:        resume.ID,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
	}
	if err := h.store.CreatePayment(ctx, record); err != nil {
		return nil, err
	}

	return intent, nil
}

// HandleConfirm 查询支付意图最新状态并同步到支付记录
func (h *PaymentHandler) HandleConfirm(ctx context.Context, intentID string) (*payment.Intent, error) {
	intent, status, err := h.intents.ConfirmIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if err := h.store.UpdatePaymentStatus(ctx, intentID, status); err != nil {
		return nil, err
	}

	return intent, nil
}
