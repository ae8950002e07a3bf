// Package email renders and delivers transactional mail for the maintenance
// workflow: review outcomes for engineers and low stock alerts for office
// coordinators.
package email

import (
	"context"

	"telecompm_backend/platform/config"
	"telecompm_backend/platform/logger"
)

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender delivers rendered notification emails.
type Sender interface {
	SendVisitSubmittedEmail(ctx context.Context, toEmail, visitNumber, siteCode, engineerName string) error
	SendVisitApprovedEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName string) error
	SendVisitRejectedEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName, reason string) error
	SendVisitCorrectionEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName, notes string) error
	SendLowStockAlertEmail(ctx context.Context, toEmail, materialName, unit string, currentStock, minimumStock float64) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NewSender selects the delivery implementation from configuration. With
// email disabled the notification pipeline stays wired but mail is dropped.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email delivery disabled; outgoing mail will be dropped")
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// NoopSender satisfies Sender without delivering anything. Used when email
// is disabled in configuration.
type NoopSender struct{}

func (NoopSender) SendVisitSubmittedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendVisitApprovedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendVisitRejectedEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendVisitCorrectionEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendLowStockAlertEmail(context.Context, string, string, string, float64, float64) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

// Compile-time check that NoopSender implements Sender.
var _ Sender = NoopSender{}
