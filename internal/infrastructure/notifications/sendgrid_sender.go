package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridEmailSender delivers email through the SendGrid v3 API
type SendGridEmailSender struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// NewSendGridEmailSender creates a SendGrid sender
func NewSendGridEmailSender(apiKey, fromAddr, fromName string) *SendGridEmailSender {
	return &SendGridEmailSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// SendEmail sends an HTML email
func (s *SendGridEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromAddr),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected email: status %d", response.StatusCode)
	}
	return nil
}
