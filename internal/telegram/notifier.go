package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"posterbot/internal/bot"
)

// ChannelNotifier posts a summary of every new order to a staff channel.
type ChannelNotifier struct {
	api       BotAPI
	channelID int64
	logger    *zap.Logger
}

var errNoChannel = errors.New("no channel configured")

var _ bot.OrderNotifier = (*ChannelNotifier)(nil)

func NewChannelNotifier(api BotAPI, channelID int64, logger *zap.Logger) *ChannelNotifier {
	return &ChannelNotifier{api: api, channelID: channelID, logger: logger}
}

func (n *ChannelNotifier) NotifyNewOrder(ctx context.Context, order bot.Order) error {
	if n.channelID == 0 {
		return errNoChannel
	}

	n.logger.Info("Preparing channel notification",
		zap.Int64("channel_id", n.channelID),
		zap.String("order_id", order.ID))

	msg := tgbotapi.NewMessage(n.channelID, bot.FormatOrderNotification(order))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send to channel %d: %w", n.channelID, err)
	}
	return nil
}
