// Package telegram relays the ordering dialog over a Telegram bot and
// posts new orders to a staff channel.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"posterbot/internal/bot"
	"posterbot/internal/ledger"
	"posterbot/internal/session"
)

// DialogHandler runs one dialog turn. *bot.Engine implements it.
type DialogHandler interface {
	Handle(ctx context.Context, userID, text string) bot.Message
}

// BotAPI is the part of *tgbotapi.BotAPI the transport uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
	StopReceivingUpdates()
}

// NewAPI authorizes the bot token.
func NewAPI(token string, debug bool, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = debug

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))
	return botAPI, nil
}

// Sessions is the session access staff commands need. *session.Manager
// implements it.
type Sessions interface {
	GetUserDialogState(ctx context.Context, userID string) (*session.Session, error)
	ClearState(ctx context.Context, userID string) error
}

type Transport struct {
	api      BotAPI
	dialog   DialogHandler
	ledger   ledger.Ledger
	sessions Sessions
	admins   map[int64]bool
	logger   *zap.Logger
	wg       sync.WaitGroup

	mu     sync.Mutex
	queues map[int64]*chatQueue
}

// chatQueue holds the messages of one chat waiting for its worker.
type chatQueue struct {
	pending []*tgbotapi.Message
}

// NewTransport creates the transport. Chats listed in adminIDs may use
// the staff commands, which work on orders.
func NewTransport(api BotAPI, dialog DialogHandler, orders ledger.Ledger, sessions Sessions, adminIDs []int64, logger *zap.Logger) *Transport {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Transport{
		api:      api,
		dialog:   dialog,
		ledger:   orders,
		sessions: sessions,
		admins:   admins,
		logger:   logger,
		queues:   make(map[int64]*chatQueue),
	}
}

// UserID is the dialog user id of a Telegram chat. The prefix keeps chat
// ids from being mistaken for phone numbers.
func UserID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// Start long-polls for updates until ctx is done. Chats are handled
// concurrently, messages of one chat strictly in the order received.
func (t *Transport) Start(ctx context.Context) error {
	t.logger.Info("Starting Telegram transport")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Shutting down Telegram transport")
			t.api.StopReceivingUpdates()
			t.wg.Wait()
			return nil

		case update, ok := <-updates:
			if !ok {
				t.wg.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			t.enqueue(ctx, update.Message)
		}
	}
}

// enqueue appends msg to its chat's queue, starting a worker for the chat
// when none is running.
func (t *Transport) enqueue(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	t.mu.Lock()
	defer t.mu.Unlock()

	if q, ok := t.queues[chatID]; ok {
		q.pending = append(q.pending, msg)
		return
	}
	q := &chatQueue{pending: []*tgbotapi.Message{msg}}
	t.queues[chatID] = q

	t.wg.Add(1)
	go t.drain(ctx, chatID, q)
}

// drain processes a chat's messages one by one and exits once the queue
// is empty. The queue is removed under the same lock enqueue takes, so no
// message is left behind.
func (t *Transport) drain(ctx context.Context, chatID int64, q *chatQueue) {
	defer t.wg.Done()

	for {
		t.mu.Lock()
		if len(q.pending) == 0 {
			delete(t.queues, chatID)
			t.mu.Unlock()
			return
		}
		msg := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		t.mu.Unlock()

		t.processMessage(ctx, msg)
	}
}

func (t *Transport) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	t.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() && t.admins[chatID] && t.handleAdminCommand(ctx, chatID, msg.Command(), strings.Fields(msg.CommandArguments())) {
		return
	}

	text := msg.Text
	switch {
	case msg.IsCommand():
		// /start, /menu and friends map onto the reset keywords
		text = msg.Command()
	case len(msg.Photo) > 0:
		text = t.photoMarker(msg)
	case msg.Document != nil:
		text = t.fileMarker(msg.Document.FileID, chatID)
	}
	if text == "" {
		return
	}

	reply := t.dialog.Handle(ctx, UserID(chatID), text)
	t.sendReply(chatID, reply)
}

// photoMarker turns an uploaded photo into the upload marker message the
// dialog understands, using the largest size Telegram offers.
func (t *Transport) photoMarker(msg *tgbotapi.Message) string {
	largest := msg.Photo[len(msg.Photo)-1]
	return t.fileMarker(largest.FileID, msg.Chat.ID)
}

func (t *Transport) fileMarker(fileID string, chatID int64) string {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		t.logger.Error("Failed to resolve uploaded file",
			zap.Int64("chat_id", chatID),
			zap.String("file_id", fileID),
			zap.Error(err))
		return ""
	}
	return "[image uploaded] " + url
}

func (t *Transport) sendReply(chatID int64, reply bot.Message) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ReplyMarkup = replyKeyboard(reply.Options)
	t.sendMessage(msg)
}

func (t *Transport) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}
