// Package mailer 通过SMTP发送带PDF附件的分析报告邮件。
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/constants"
	"resume-coach-go/internal/logger"
)

// Mailer SMTP邮件发送器
type Mailer struct {
	client *mail.Client
	from   string
	logger zerolog.Logger
}

// NewMailer 创建SMTP发送器
func NewMailer(cfg *config.SMTPConfig) (*Mailer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("SMTP配置不能为空")
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("创建SMTP客户端失败: %w", err)
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
		logger: logger.Logger.With().Str("component", "mailer").Logger(),
	}, nil
}

// SendReport 发送带PDF附件的分析报告邮件
func (m *Mailer) SendReport(ctx context.Context, to string, reportPDF []byte) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("设置收件人失败: %w", err)
	}

	msg.Subject(constants.ReportEmailSubject)
	msg.SetBodyString(mail.TypeTextPlain,
		"您好，\n\n附件是您的简历分析报告，请查收。\n\nBest regards,\nResume Coach")

	if err := msg.AttachReader(constants.ReportAttachmentName, bytes.NewReader(reportPDF)); err != nil {
		return fmt.Errorf("添加报告附件失败: %w", err)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("发送报告邮件失败: %w", err)
	}

	m.logger.Info().Str("to", to).Int("attachment_bytes", len(reportPDF)).Msg("分析报告邮件已发送")
	return nil
}
