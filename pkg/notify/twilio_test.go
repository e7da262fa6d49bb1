package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewTwilioRequiresCredentials(t *testing.T) {
	if _, err := NewTwilio(TwilioOpts{FromWhats: "whatsapp:+14155238886"}, zap.NewNop()); err == nil {
		t.Error("expected an error without credentials")
	}
	if _, err := NewTwilio(TwilioOpts{AccountSID: "AC123", AuthToken: "tok"}, zap.NewNop()); err == nil {
		t.Error("expected an error without a sender number")
	}
	if _, err := NewTwilio(TwilioOpts{AccountSID: "AC123", AuthToken: "tok", FromWhats: "whatsapp:+14155238886"}, zap.NewNop()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLogSender(t *testing.T) {
	if err := NewLog(zap.NewNop()).SendMessage(context.Background(), "+919876543210", "hi"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
