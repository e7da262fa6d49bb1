package worker

import (
	"context"
	"fmt"
	"strings"

	"posterbot/pkg/notify"
)

// SenderDispatcher delivers notifications through a notify.Sender,
// turning the ledger's local phone numbers into E.164.
type SenderDispatcher struct {
	sender        notify.Sender
	countryPrefix string
}

func NewSenderDispatcher(sender notify.Sender, countryPrefix string) *SenderDispatcher {
	return &SenderDispatcher{sender: sender, countryPrefix: countryPrefix}
}

func (d *SenderDispatcher) Dispatch(ctx context.Context, n Notification) error {
	to := InternationalNumber(n.Phone, d.countryPrefix)
	if to == "" {
		return fmt.Errorf("order %s has no contact number", n.OrderID)
	}
	return d.sender.SendMessage(ctx, to, n.Text)
}

// InternationalNumber prefixes a local number with countryPrefix. Numbers
// that already start with "+" are returned without spaces.
func InternationalNumber(phone, countryPrefix string) string {
	phone = strings.Join(strings.Fields(phone), "")
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return countryPrefix + phone
}
