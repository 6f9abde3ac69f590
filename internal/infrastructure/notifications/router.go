package notifications

import (
	"context"
)

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers HTML email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Router implements domain.NotificationService by pairing an SMS and an email provider
type Router struct {
	sms   SMSSender
	email EmailSender
}

func NewRouter(sms SMSSender, email EmailSender) *Router {
	return &Router{sms: sms, email: email}
}

func (r *Router) SendSMS(ctx context.Context, to, message string) error {
	return r.sms.SendSMS(ctx, to, message)
}

func (r *Router) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return r.email.SendEmail(ctx, to, subject, htmlBody)
}
