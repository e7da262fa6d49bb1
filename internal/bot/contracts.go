package bot

import (
	"context"
	"time"

	"posterbot/internal/session"
)

// Order is a successfully recorded order, passed to OrderNotifier.
type Order struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	Items     []session.CartItem
	CreatedAt time.Time
}

// OrderNotifier is told about every new order, e.g. to alert staff. It is
// called off the user's turn; errors are logged only.
type OrderNotifier interface {
	NotifyNewOrder(ctx context.Context, order Order) error
}
