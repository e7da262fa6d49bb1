package bot

import (
	"context"
	"fmt"
	"strings"

	"posterbot/internal/session"
)

func (e *Engine) welcome() Message {
	return newMessage(e.variant.Welcome.Text, e.variant.Welcome.Options...)
}

// handleFallback counts an unrecognized IDLE message. Every FallbackLimit
// misses in a row the user is offered a human instead.
func (e *Engine) handleFallback(ctx context.Context, s *session.Session, t turn) Message {
	s.FallbackCount++
	if s.FallbackCount >= e.variant.FallbackLimit {
		s.FallbackCount = 0
		return newMessage(textHandoffOffer, optChatOnWhatsApp, optMainMenu)
	}
	return newMessage(textNotUnderstood, e.variant.Welcome.Options...)
}

func (e *Engine) startStatusCheck(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateCheckStatus
	return newMessage(textTrackPrompt, optMainMenu)
}

func (e *Engine) recommendCategory(ctx context.Context, s *session.Session, t turn) Message {
	category := allCategories
	for _, c := range knownCategories {
		if strings.Contains(t.lower, c) {
			category = c
			break
		}
	}
	return newMessage(fmt.Sprintf(textCategoryTemplate, capitalize(category), category),
		optPlaceOrder, optCustomPrint)
}

// startCustomPrint explains how to upload, or goes straight to the
// quantity question when the message already carries an upload.
func (e *Engine) startCustomPrint(ctx context.Context, s *session.Session, t turn) Message {
	if !hasUploadMarker(t.lower) {
		return newMessage(textCustomUploadHint, optMainMenu)
	}

	s.PendingItem = &session.CartItem{
		Kind:        session.KindCustom,
		ProductName: "Custom Upload",
		Details:     session.StringPtr("Image: " + uploadReference(t.raw)),
	}
	s.State = session.StateCustomAskQty
	return newMessage(textImageReceived, "1", "2", "3", "5")
}

func (e *Engine) showPolicies(ctx context.Context, s *session.Session, t turn) Message {
	return newMessage(e.variant.PolicyText, optMainMenu)
}

func (e *Engine) showCheckoutLink(ctx context.Context, s *session.Session, t turn) Message {
	return newMessage(textCheckoutLink, optMainMenu)
}

func (e *Engine) showHandoff(ctx context.Context, s *session.Session, t turn) Message {
	return newMessage(fmt.Sprintf(textHandoffTemplate, e.variant.WhatsAppLink), optMainMenu)
}

func (e *Engine) askOrderCategory(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateAskOrderCategory
	return newMessage(textOrderWhat, categoryOptions()...)
}

// backToMenu leaves a selection step for IDLE. The cart is kept.
func (e *Engine) backToMenu(ctx context.Context, s *session.Session, t turn) Message {
	s.State = session.StateIdle
	s.PendingItem = nil
	return e.welcome()
}
