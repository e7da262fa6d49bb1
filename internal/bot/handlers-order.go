package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"posterbot/internal/ledger"
	"posterbot/internal/session"
)

// finalizeOrder writes one ledger row per cart item under a new order id.
// On failure nothing in the session changes, so the user can retry.
func (e *Engine) finalizeOrder(ctx context.Context, s *session.Session) Message {
	if len(s.Cart) == 0 {
		s.State = session.StateAskOrderCategory
		return newMessage(textEmptyCart, categoryOptions()...)
	}
	if next, ok := e.missingField(s); ok {
		return e.ask(s, next)
	}

	orderID := e.newOrderID()
	createdAt := e.now()
	name := session.StringValue(s.UserInfo.Name)
	address := session.StringValue(s.UserInfo.Address)
	phone := NormalizePhoneNumber(session.StringValue(s.UserInfo.Phone), e.variant.CountryPrefix)

	rows := make([]ledger.Row, 0, len(s.Cart))
	for _, item := range s.Cart {
		size := defaultSize
		if item.Size != nil {
			size = *item.Size
		}
		rows = append(rows, ledger.Row{
			orderID,
			name,
			item.ProductName,
			string(item.Kind),
			size,
			item.Quantity,
			createdAt.Format(TimestampLayout),
			address,
			phone,
			session.StringValue(item.Details),
			ledger.No,
			ledger.No,
		})
	}

	if err := ledger.AppendAll(ctx, e.ledger, rows); err != nil {
		var partial *ledger.PartialWriteError
		if errors.As(err, &partial) && partial.Written > 0 {
			// the retry will write the order again under a new id
			e.logger.Warn("Orphan ledger rows left by failed order",
				zap.String("order_id", orderID),
				zap.Int("rows", partial.Written))
		}
		e.logger.Error("Failed to save order",
			zap.String("user_id", s.UserID),
			zap.String("order_id", orderID),
			zap.Int("items", len(rows)),
			zap.Error(err))
		return newMessage(textOrderFailed, optMainMenu)
	}

	e.logger.Info("Order saved",
		zap.String("user_id", s.UserID),
		zap.String("order_id", orderID),
		zap.Int("items", len(rows)))

	items := make([]session.CartItem, len(s.Cart))
	copy(items, s.Cart)
	itemCount := len(items)

	s.Cart = []session.CartItem{}
	s.PendingItem = nil
	s.FallbackCount = 0
	s.State = session.StateIdle

	e.notifyNewOrder(ctx, Order{
		ID:        orderID,
		Name:      name,
		Address:   address,
		Phone:     phone,
		Items:     items,
		CreatedAt: createdAt,
	})

	return newMessage(
		fmt.Sprintf(textOrderPlacedTmpl, orderID, itemCount, name, phone, e.variant.PaymentText),
		optCheckOrderStatus, optPlaceAnother,
	)
}

func (e *Engine) notifyNewOrder(ctx context.Context, order Order) {
	if e.notifier == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
		defer cancel()

		if err := e.notifier.NotifyNewOrder(ctx, order); err != nil {
			e.logger.Error("Failed to send new order notification",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}()
}

// handleStatusCheck treats the whole message as an order id. While the
// ledger is unreachable the user stays in CHECK_STATUS to retry.
func (e *Engine) handleStatusCheck(ctx context.Context, s *session.Session, t turn) Message {
	orderID := strings.TrimSpace(strings.ReplaceAll(t.raw, "#", ""))

	reply, err := e.orderStatus(ctx, orderID)
	if err != nil {
		e.logger.Error("Failed to look up order status",
			zap.String("user_id", s.UserID),
			zap.String("order_id", orderID),
			zap.Error(err))
		return newMessage(textStatusNoLedger, optMainMenu)
	}

	s.State = session.StateIdle
	return reply
}

func (e *Engine) orderStatus(ctx context.Context, orderID string) (Message, error) {
	rows, err := e.ledger.ReadAllRows(ctx)
	if err != nil {
		return Message{}, err
	}
	if len(rows) == 0 {
		return newMessage(textStatusNotFound, optMainMenu, optStatusAgain), nil
	}

	idCol, err := ledger.FindColumn(rows[0], ledger.Candidates(ledger.ColOrderID)...)
	if err != nil {
		return Message{}, err
	}
	verifiedCol, err := ledger.FindColumn(rows[0], ledger.Candidates(ledger.ColPaymentVerified)...)
	if err != nil {
		return Message{}, err
	}

	for _, row := range rows[1:] {
		if strings.TrimSpace(row.Cell(idCol)) != orderID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row.Cell(verifiedCol)), ledger.Yes) {
			return newMessage(fmt.Sprintf(textStatusConfirmed, orderID), optMainMenu), nil
		}
		return newMessage(fmt.Sprintf(textStatusPending, orderID), optMainMenu), nil
	}
	return newMessage(textStatusNotFound, optMainMenu, optStatusAgain), nil
}
