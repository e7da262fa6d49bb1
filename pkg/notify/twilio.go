// Package notify delivers text messages to customers.
package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Sender sends one text message to a phone number in E.164 format.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	// FromWhats is the sender in "whatsapp:+1234567890" format.
	FromWhats string
}

// Twilio sends WhatsApp messages through the Twilio REST API.
type Twilio struct {
	client    *twilio.RestClient
	fromWhats string
	logger    *zap.Logger
}

func NewTwilio(opts TwilioOpts, logger *zap.Logger) (*Twilio, error) {
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if opts.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: opts.AccountSID,
			Password: opts.AuthToken,
		},
	)

	return &Twilio{
		client:    client,
		fromWhats: opts.FromWhats,
		logger:    logger,
	}, nil
}

// SendMessage sends a WhatsApp message using Twilio API
func (t *Twilio) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(t.fromWhats)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	t.logger.Debug("Twilio message sent", zap.String("to", to), zap.String("sid", sid))
	return nil
}

// Log only logs messages. It is used when no delivery channel is
// configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendMessage(ctx context.Context, to string, body string) error {
	l.logger.Info("Customer notification",
		zap.String("to", to),
		zap.String("text", body))
	return nil
}
