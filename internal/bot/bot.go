// Package bot implements the ordering dialog: a per-user state machine
// that turns one inbound text into one reply.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"posterbot/internal/catalog"
	"posterbot/internal/ledger"
	"posterbot/internal/session"
)

type Engine struct {
	sessions *session.Manager
	catalog  catalog.Provider
	ledger   ledger.Ledger
	notifier OrderNotifier
	variant  Variant
	logger   *zap.Logger

	newOrderID    func() string
	now           func() time.Time
	notifyTimeout time.Duration
	wg            sync.WaitGroup

	rules    map[session.State][]rule
	handlers map[session.State]action
}

type Option func(*Engine)

func WithVariant(v Variant) Option {
	return func(e *Engine) { e.variant = v }
}

func WithOrderIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newOrderID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier reports new orders to n in the background.
func WithNotifier(n OrderNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func New(
	sessions *session.Manager,
	products catalog.Provider,
	orders ledger.Ledger,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		sessions:      sessions,
		catalog:       products,
		ledger:        orders,
		variant:       DefaultVariant(),
		logger:        logger,
		newOrderID:    GenerateOrderID,
		now:           time.Now,
		notifyTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.variant.lowerKeywords()

	e.rules = e.buildRules()
	e.registerHandlers()
	return e
}

// registerHandlers sets what each state does with input that matched none
// of its rules.
func (e *Engine) registerHandlers() {
	e.handlers = map[session.State]action{
		session.StateIdle:                 e.handleFallback,
		session.StateCheckStatus:          e.handleStatusCheck,
		session.StateAskOrderCategory:     e.handleCategoryReprompt,
		session.StateWebsiteSelectProduct: e.handleProductSelection,
		session.StateWebsiteAskQty:        e.handleQuantity,
		session.StateCustomUploadDetails:  e.handleCustomDetails,
		session.StateCustomAskQty:         e.handleQuantity,
		session.StateAskAddMore:           e.handleCheckout,
		session.StateAskName:              e.handleName,
		session.StateAskAddress:           e.handleAddress,
		session.StateAskPhone:             e.handlePhone,
	}
}

// Handle runs one turn of userID's conversation. It never fails: errors
// become a system error reply.
func (e *Engine) Handle(ctx context.Context, userID, text string) Message {
	var reply Message

	err := e.sessions.WithSession(ctx, userID, func(s *session.Session, created bool) error {
		from := s.State
		reply = e.step(ctx, s, created, text)

		e.logger.Debug("Processed message",
			zap.String("user_id", userID),
			zap.String("from_state", string(from)),
			zap.String("to_state", string(s.State)))
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to process message",
			zap.String("user_id", userID),
			zap.Error(err))
		return newMessage(textSystemError, optMainMenu)
	}
	return reply.normalized()
}

// Wait blocks until background order notifications have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) step(ctx context.Context, s *session.Session, created bool, text string) Message {
	t := turn{raw: strings.TrimSpace(text)}
	t.lower = strings.ToLower(t.raw)

	if created && e.variant.GreetNewSessions {
		return e.welcome()
	}

	if e.isReset(t.lower) {
		s.Reset()
		return e.welcome()
	}

	for _, r := range e.rules[s.State] {
		if containsAny(t.lower, r.keywords) {
			e.logger.Debug("Matched rule",
				zap.String("user_id", s.UserID),
				zap.String("rule", r.name))
			s.FallbackCount = 0
			return r.action(ctx, s, t)
		}
	}

	if h, ok := e.handlers[s.State]; ok {
		return h(ctx, s, t)
	}
	return e.handleFallback(ctx, s, t)
}
