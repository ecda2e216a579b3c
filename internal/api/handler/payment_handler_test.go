package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resume-coach-go/internal/constants"
	"resume-coach-go/internal/payment"
	"resume-coach-go/internal/storage/models"
)

type fakeIntents struct {
	created    []string
	createErr  error
	confirmErr error
	status     string
}

func (f *fakeIntents) CreateIntent(ctx context.Context, slug string) (*payment.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, slug)
	return &payment.Intent{
		ID:           "pi_test_123",
		ClientSecret: "pi_test_123_secret",
		AmountCents:  1999,
		Currency:     "eur",
		Status:       "requires_payment_method",
	}, nil
}

func (f *fakeIntents) ConfirmIntent(ctx context.Context, intentID string) (*payment.Intent, string, error) {
	if f.confirmErr != nil {
		return nil, "", f.confirmErr
	}
	return &payment.Intent{ID: intentID, Status: "succeeded"}, f.status, nil
}

type fakePaymentStore struct {
	resume   *models.Resume
	payments []*models.Payment
	statuses map[string]string
}

func (f *fakePaymentStore) GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error) {
	if f.resume == nil || f.resume.Slug != slug {
		return nil, gorm.ErrRecordNotFound
	}
	return f.resume, nil
}

func (f *fakePaymentStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakePaymentStore) UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	if _, ok := f.statuses[paymentIntentID]; !ok && len(f.payments) == 0 {
		return gorm.ErrRecordNotFound
	}
	f.statuses[paymentIntentID] = status
	return nil
}

func TestPaymentHandleCreate(t *testing.T) {
	intents := &fakeIntents{}
	store := &fakePaymentStore{resume: &models.Resume{ID: 7, Slug: "aaaa0000bbbb1111"}}
	h := NewPaymentHandler(intents, store)

	intent, err := h.HandleCreate(context.Background(), "aaaa0000bbbb1111")
	require.NoError(t, err)
	assert.Equal(t, "pi_test_123", intent.ID)
	assert.NotEmpty(t, intent.ClientSecret)

	require.Len(t, store.payments, 1, "应落库一条支付记录")
	assert.Equal(t, uint64(7), store.payments[0].ResumeID)
	assert.Equal(t, "pi_test_123", store.payments[0].PaymentIntentID)
	assert.Equal(t, int64(1999), store.payments[0].AmountCents)
	assert.Equal(t, "eur", store.payments[0].Currency)
}

func TestPaymentHandleCreateErrors(t *testing.T) {
	t.Run("简历不存在", func(t *testing.T) {
		h := NewPaymentHandler(&fakeIntents{}, &fakePaymentStore{})
		_, err := h.HandleCreate(context.Background(), "ffff0000ffff0000")
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("意图创建失败不落库", func(t *testing.T) {
		intents := &fakeIntents{createErr: fmt.Errorf("stripe不可达")}
		store := &fakePaymentStore{resume: &models.Resume{ID: 7, Slug: "aaaa0000bbbb1111"}}
		h := NewPaymentHandler(intents, store)

		_, err := h.HandleCreate(context.Background(), "aaaa0000bbbb1111")
		require.Error(t, err)
		assert.Empty(t, store.payments)
	})
}

func TestPaymentHandleConfirm(t *testing.T) {
	intents := &fakeIntents{status: constants.PaymentStatusSucceeded}
	store := &fakePaymentStore{resume: &models.Resume{ID: 7, Slug: "aaaa0000bbbb1111"}}
	h := NewPaymentHandler(intents, store)

	_, err := h.HandleCreate(context.Background(), "aaaa0000bbbb1111")
	require.NoError(t, err)

	intent, err := h.HandleConfirm(context.Background(), "pi_test_123")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)
	assert.Equal(t, constants.PaymentStatusSucceeded, store.statuses["pi_test_123"])
}

func TestPaymentHandleConfirmUnknownIntent(t *testing.T) {
	intents := &fakeIntents{status: constants.PaymentStatusSucceeded}
	h := NewPaymentHandler(intents, &fakePaymentStore{})

	_, err := h.HandleConfirm(context.Background(), "pi_unknown")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
