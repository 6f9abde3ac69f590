package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMSSender delivers SMS through the Twilio REST API
type TwilioSMSSender struct {
	client     *twilio.RestClient
	fromNumber string
	log        *slog.Logger
}

// NewTwilioSMSSender creates a Twilio SMS sender; without a from number messages are only logged
func NewTwilioSMSSender(accountSID, authToken, fromNumber string, log *slog.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSSender{
		client:     client,
		fromNumber: fromNumber,
		log:        log,
	}
}

// SendSMS sends message to the given phone number
func (t *TwilioSMSSender) SendSMS(ctx context.Context, to, message string) error {
	if t.fromNumber == "" {
		t.log.InfoContext(ctx, "twilio not configured, sms logged only", slog.String("to", to), slog.Int("length", len(message)))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Sid != nil {
		t.log.DebugContext(ctx, "sms accepted", slog.String("sid", *resp.Sid))
	}

	return nil
}
