package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"posterbot/internal/ledger"
	"posterbot/internal/session"
)

// handleAdminCommand runs a staff command and reports whether cmd was one.
func (t *Transport) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args []string) bool {
	switch cmd {
	case "verify":
		if len(args) == 0 {
			t.sendError(chatID, "Usage: /verify <order id>")
			return true
		}
		t.handleVerify(ctx, chatID, strings.TrimPrefix(args[0], "#"))
	case "stats":
		t.handleOrderStats(ctx, chatID)
	case "session", "clear":
		if len(args) == 0 || t.sessions == nil {
			t.sendError(chatID, "Usage: /"+cmd+" <user id>")
			return true
		}
		if cmd == "session" {
			t.handleShowSession(ctx, chatID, args[0])
		} else {
			t.handleClearSession(ctx, chatID, args[0])
		}
	default:
		return false
	}
	return true
}

// handleVerify marks an order's payment as verified. The notification
// sweeper then confirms the order to the customer.
func (t *Transport) handleVerify(ctx context.Context, chatID int64, orderID string) {
	n, err := VerifyPayment(ctx, t.ledger, orderID)
	if err != nil {
		t.logger.Error("Failed to verify payment",
			zap.String("order_id", orderID),
			zap.Error(err))
		t.sendError(chatID, "Could not update the ledger")
		return
	}
	if n == 0 {
		t.sendError(chatID, fmt.Sprintf("Order #%s not found or already verified", orderID))
		return
	}
	t.sendMessage(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("✅ Payment for order #%s verified (%d item(s))", orderID, n)))
}

func (t *Transport) handleOrderStats(ctx context.Context, chatID int64) {
	stats, err := CollectStats(ctx, t.ledger)
	if err != nil {
		t.logger.Error("Failed to collect order stats", zap.Error(err))
		t.sendError(chatID, "Could not read the ledger")
		return
	}
	t.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"📊 Orders: %d\nItems: %d\nPayment verified: %d\nAwaiting payment: %d\nConfirmations sent: %d",
		stats.Orders, stats.Items, stats.Verified, stats.Orders-stats.Verified, stats.Confirmed,
	)))
}

// handleShowSession reports where a customer is in the dialog.
func (t *Transport) handleShowSession(ctx context.Context, chatID int64, userID string) {
	s, err := t.sessions.GetUserDialogState(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		t.sendError(chatID, fmt.Sprintf("No session for %s", userID))
		return
	}
	if err != nil {
		t.logger.Error("Failed to get session",
			zap.String("user_id", userID),
			zap.Error(err))
		t.sendError(chatID, "Could not read the session")
		return
	}
	t.sendMessage(tgbotapi.NewMessage(chatID, FormatSession(s)))
}

// handleClearSession drops a stuck customer's session; their next message
// starts from the welcome message.
func (t *Transport) handleClearSession(ctx context.Context, chatID int64, userID string) {
	if err := t.sessions.ClearState(ctx, userID); err != nil {
		t.logger.Error("Failed to clear session",
			zap.String("user_id", userID),
			zap.Error(err))
		t.sendError(chatID, "Could not clear the session")
		return
	}
	t.logger.Info("Session cleared by staff",
		zap.Int64("admin_chat_id", chatID),
		zap.String("user_id", userID))
	t.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("🧹 Session of %s cleared", userID)))
}

func FormatSession(s *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\nState: %s\nCart items: %d", s.UserID, s.State, len(s.Cart))
	if s.PendingItem != nil {
		fmt.Fprintf(&b, "\nPending: %s", s.PendingItem.ProductName)
	}
	if name := session.StringValue(s.UserInfo.Name); name != "" {
		fmt.Fprintf(&b, "\nName: %s", name)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "\nLast message: %s", s.UpdatedAt.Format(time.RFC3339))
	}
	return b.String()
}

func (t *Transport) sendError(chatID int64, text string) {
	t.sendMessage(tgbotapi.NewMessage(chatID, "❌ "+text))
}

// VerifyPayment sets "Payment Verified" on every not yet verified row of
// the order and returns how many rows changed.
func VerifyPayment(ctx context.Context, l ledger.Ledger, orderID string) (int, error) {
	rows, err := l.ReadAllRows(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	idCol, err := ledger.FindColumn(rows[0], ledger.Candidates(ledger.ColOrderID)...)
	if err != nil {
		return 0, err
	}
	verifiedCol, err := ledger.FindColumn(rows[0], ledger.Candidates(ledger.ColPaymentVerified)...)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i, row := range rows[1:] {
		if strings.TrimSpace(row.Cell(idCol)) != orderID || strings.EqualFold(strings.TrimSpace(row.Cell(verifiedCol)), ledger.Yes) {
			continue
		}
		if err := l.UpdateCell(ctx, i+2, verifiedCol+1, ledger.Yes); err != nil {
			return updated, fmt.Errorf("row %d: %w", i+2, err)
		}
		updated++
	}
	return updated, nil
}

type OrderStats struct {
	Orders    int
	Items     int
	Verified  int
	Confirmed int
}

// CollectStats counts orders by id. An order counts as verified or
// confirmed when all of its rows are.
func CollectStats(ctx context.Context, l ledger.Ledger) (OrderStats, error) {
	var stats OrderStats

	rows, err := l.ReadAllRows(ctx)
	if err != nil {
		return stats, err
	}
	if len(rows) < 2 {
		return stats, nil
	}
	cols := make([]int, 3)
	for i, name := range []string{ledger.ColOrderID, ledger.ColPaymentVerified, ledger.ColConfirmationSent} {
		idx, err := ledger.FindColumn(rows[0], ledger.Candidates(name)...)
		if err != nil {
			return stats, err
		}
		cols[i] = idx
	}

	type orderState struct{ verified, confirmed bool }
	orders := make(map[string]*orderState)
	for _, row := range rows[1:] {
		id := strings.TrimSpace(row.Cell(cols[0]))
		if id == "" {
			continue
		}
		stats.Items++
		st, ok := orders[id]
		if !ok {
			st = &orderState{verified: true, confirmed: true}
			orders[id] = st
		}
		st.verified = st.verified && strings.EqualFold(strings.TrimSpace(row.Cell(cols[1])), ledger.Yes)
		st.confirmed = st.confirmed && strings.EqualFold(strings.TrimSpace(row.Cell(cols[2])), ledger.Yes)
	}

	stats.Orders = len(orders)
	for _, st := range orders {
		if st.verified {
			stats.Verified++
		}
		if st.confirmed {
			stats.Confirmed++
		}
	}
	return stats, nil
}
