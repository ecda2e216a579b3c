// Package payment 封装Stripe支付意图的创建与确认查询。
package payment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/constants"
	"resume-coach-go/internal/logger"
)

// Intent 支付意图的对外视图
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// StripeService Stripe支付服务
type StripeService struct {
	api         *client.API
	currency    string
	amountCents int64
	logger      zerolog.Logger
}

// NewStripeService 创建Stripe支付服务
func NewStripeService(cfg *config.StripeConfig) (*StripeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Stripe配置不能为空")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("Stripe密钥不能为空")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeService{
		api:         api,
		currency:    cfg.Currency,
		amountCents: cfg.AmountCents,
		logger:      logger.Logger.With().Str("component", "stripe_payment").Logger(),
	}, nil
}

// CreateIntent 为一次简历分析创建支付意图，金额与币种来自配置
func (s *StripeService) CreateIntent(ctx context.Context, slug string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(s.amountCents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("resume_slug", slug)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("创建支付意图失败: %w", err)
	}

	s.logger.Info().
		Str("intent_id", pi.ID).
		Str("slug", slug).
		Int64("amount", pi.Amount).
		Msg("支付意图已创建")

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}, nil
}

// ConfirmIntent 查询支付意图的最新状态并换算为内部支付状态
func (s *StripeService) ConfirmIntent(ctx context.Context, intentID string) (*Intent, string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, "", fmt.Errorf("查询支付意图失败: %w", err)
	}

	status := constants.PaymentStatusPending
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = constants.PaymentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = constants.PaymentStatusFailed
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}, status, nil
}
