package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"posterbot/internal/session"
)

func (e *Engine) handleCategoryReprompt(ctx context.Context, s *session.Session, t turn) Message {
	return newMessage(textChooseCategory, categoryOptions()...)
}

// showCatalog lists at most CatalogLimit products in catalog order.
func (e *Engine) showCatalog(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateWebsiteSelectProduct

	products := e.catalog.ListProducts()
	if len(products) > e.variant.CatalogLimit {
		products = products[:e.variant.CatalogLimit]
	}
	options := make([]string, 0, len(products)+1)
	options = append(options, products...)
	options = append(options, optMainMenu)
	return newMessage(textSelectProduct, options...)
}

func (e *Engine) askCustomDetails(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateCustomUploadDetails
	return newMessage(textCustomDetails, optUploadedDetails, optMainMenu)
}

// handleProductSelection takes any text as the product name; it does not
// have to be one of the listed products.
func (e *Engine) handleProductSelection(ctx context.Context, s *session.Session, t turn) Message {
	s.PendingItem = &session.CartItem{
		Kind:        session.KindWebsite,
		ProductName: t.raw,
		Size:        session.StringPtr(defaultSize),
	}
	s.State = session.StateWebsiteAskQty
	return newMessage(fmt.Sprintf(textProductQtyTmpl, t.raw), quantityOptions()...)
}

func (e *Engine) handleCustomDetails(ctx context.Context, s *session.Session, t turn) Message {
	details := t.raw
	if hasUploadMarker(t.lower) {
		details = "Image: " + uploadReference(t.raw)
	}
	s.PendingItem = &session.CartItem{
		Kind:        session.KindCustom,
		ProductName: "Custom",
		Details:     session.StringPtr(details),
	}
	s.State = session.StateCustomAskQty
	return newMessage(textCustomQty, quantityOptions()...)
}

// handleQuantity stores the answer as is and moves the pending item into
// the cart.
func (e *Engine) handleQuantity(ctx context.Context, s *session.Session, t turn) Message {
	if !s.CommitPending(t.raw) {
		e.logger.Warn("Quantity step without a pending item, resetting",
			zap.String("user_id", s.UserID),
			zap.String("state", string(s.State)))
		s.Reset()
		return e.welcome()
	}
	s.State = session.StateAskAddMore
	return newMessage(textAddedToCart, addMoreOptions()...)
}

func (e *Engine) addMore(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateAskOrderCategory
	return newMessage(textCategoryAgain, categoryOptions()...)
}

// handleCheckout starts collecting delivery details, skipping the ones
// already known when the variant allows it.
func (e *Engine) handleCheckout(ctx context.Context, s *session.Session, t turn) Message {
	if !e.variant.SkipFilledFields {
		return e.ask(s, session.StateAskName)
	}
	if next, ok := e.missingField(s); ok {
		return e.ask(s, next)
	}
	return e.finalizeOrder(ctx, s)
}

func (e *Engine) handleName(ctx context.Context, s *session.Session, t turn) Message {
	s.UserInfo.Name = session.StringPtr(t.raw)

	if e.variant.SkipFilledFields && filled(s.UserInfo.Address) {
		return e.ask(s, session.StateAskPhone)
	}
	return e.ask(s, session.StateAskAddress)
}

func (e *Engine) handleAddress(ctx context.Context, s *session.Session, t turn) Message {
	s.UserInfo.Address = session.StringPtr(t.raw)

	if !e.variant.SkipFilledFields {
		return e.ask(s, session.StateAskPhone)
	}
	if !filled(s.UserInfo.Name) {
		return e.ask(s, session.StateAskName)
	}
	if e.validPhone(s.UserInfo.Phone) {
		return e.finalizeOrder(ctx, s)
	}
	return e.ask(s, session.StateAskPhone)
}

func (e *Engine) handlePhone(ctx context.Context, s *session.Session, t turn) Message {
	phone := NormalizePhoneNumber(t.raw, e.variant.CountryPrefix)
	if !IsValidPhoneNumber(phone) {
		return newMessage(textInvalidPhone)
	}
	s.UserInfo.Phone = session.StringPtr(phone)
	return e.finalizeOrder(ctx, s)
}

// missingField returns the first checkout question without an answer.
func (e *Engine) missingField(s *session.Session) (session.State, bool) {
	switch {
	case !filled(s.UserInfo.Name):
		return session.StateAskName, true
	case !filled(s.UserInfo.Address):
		return session.StateAskAddress, true
	case !e.validPhone(s.UserInfo.Phone):
		return session.StateAskPhone, true
	}
	return "", false
}

func (e *Engine) ask(s *session.Session, state session.State) Message {
	s.State = state
	switch state {
	case session.StateAskName:
		return newMessage(textAskName)
	case session.StateAskAddress:
		return newMessage(textAskAddress)
	default:
		return newMessage(textAskPhone)
	}
}

func filled(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}
