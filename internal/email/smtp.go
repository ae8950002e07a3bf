package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendVisitSubmittedEmail(ctx context.Context, toEmail, visitNumber, siteCode, engineerName string) error {
	subject := fmt.Sprintf(subjectVisitSubmittedFmt, visitNumber)
	content, err := renderEmailTemplate("visit_submitted.html", visitSubmittedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Visit submitted for review",
			Heading: "Visit submitted for review",
		},
		VisitNumber:  visitNumber,
		SiteCode:     siteCode,
		EngineerName: engineerName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendVisitApprovedEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName string) error {
	subject := fmt.Sprintf(subjectVisitApprovedFmt, visitNumber)
	content, err := renderEmailTemplate("visit_reviewed.html", visitReviewedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Visit approved",
			Heading: "Visit approved",
		},
		EngineerName: engineerName,
		VisitNumber:  visitNumber,
		ReviewerName: reviewerName,
		Outcome:      "approved",
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendVisitRejectedEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName, reason string) error {
	subject := fmt.Sprintf(subjectVisitRejectedFmt, visitNumber)
	content, err := renderEmailTemplate("visit_reviewed.html", visitReviewedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Visit rejected",
			Heading: "Visit rejected",
		},
		EngineerName: engineerName,
		VisitNumber:  visitNumber,
		ReviewerName: reviewerName,
		Outcome:      "rejected",
		Detail:       reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendVisitCorrectionEmail(ctx context.Context, toEmail, engineerName, visitNumber, reviewerName, notes string) error {
	subject := fmt.Sprintf(subjectVisitCorrectionFmt, visitNumber)
	content, err := renderEmailTemplate("visit_reviewed.html", visitReviewedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Visit needs correction",
			Heading: "Visit needs correction",
		},
		EngineerName: engineerName,
		VisitNumber:  visitNumber,
		ReviewerName: reviewerName,
		Outcome:      "sent back for correction",
		Detail:       notes,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendLowStockAlertEmail(ctx context.Context, toEmail, materialName, unit string, currentStock, minimumStock float64) error {
	subject := fmt.Sprintf(subjectLowStockFmt, materialName)
	content, err := renderEmailTemplate("low_stock.html", lowStockEmailData{
		baseEmailData: baseEmailData{
			Title:   "Low stock alert",
			Heading: "Low stock alert",
		},
		MaterialName: materialName,
		CurrentStock: formatQuantity(currentStock),
		MinimumStock: formatQuantity(minimumStock),
		Unit:         unit,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)
