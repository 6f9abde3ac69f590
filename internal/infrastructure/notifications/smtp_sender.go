package notifications

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"
)

// SMTPEmailSender delivers email through an SMTP relay
type SMTPEmailSender struct {
	host     string
	port     int
	username string
	password string
	fromName string
	fromAddr string
}

// NewSMTPEmailSender creates an SMTP sender; credentials are optional
func NewSMTPEmailSender(host string, port int, username, password, fromAddr, fromName string) *SMTPEmailSender {
	return &SMTPEmailSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (s *SMTPEmailSender) message(to, subject, htmlBody string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, htmlBody)
	return m, nil
}

// SendEmail sends an HTML email
func (s *SMTPEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	m, err := s.message(to, subject, htmlBody)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
