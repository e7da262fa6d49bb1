package bot

import (
	"fmt"
	"strings"

	"posterbot/internal/session"
)

// FormatOrderNotification renders an order for the staff channel.
func FormatOrderNotification(order Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📦 New order #%s\n\n", order.ID)
	for i, item := range order.Items {
		fmt.Fprintf(&b, "%d. %s (%s) x %s", i+1, item.ProductName, item.Kind, item.Quantity)
		if item.Size != nil && *item.Size != defaultSize {
			fmt.Fprintf(&b, ", size %s", *item.Size)
		}
		if d := session.StringValue(item.Details); d != "" {
			fmt.Fprintf(&b, "\n   %s", d)
		}
		b.WriteString("\n")
	}
	b.WriteString("──────────────────\n")
	fmt.Fprintf(&b, "Name: %s\n", order.Name)
	fmt.Fprintf(&b, "Address: %s\n", order.Address)
	fmt.Fprintf(&b, "Phone: %s\n", order.Phone)
	fmt.Fprintf(&b, "Date: %s", order.CreatedAt.Format(TimestampLayout))

	return b.String()
}
