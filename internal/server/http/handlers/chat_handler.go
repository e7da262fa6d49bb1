package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"posterbot/internal/bot"
	"posterbot/internal/server/http/dto"
)

// Dialog runs one chat turn. *bot.Engine implements it.
type Dialog interface {
	Handle(ctx context.Context, userID, text string) bot.Message
}

// RateLimiter reports whether the user may send another message.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID string, limit int) (bool, error)
}

type ChatHandler struct {
	dialog  Dialog
	limiter RateLimiter
	limit   int
	logger  *zap.Logger
}

// NewChatHandler creates the chat handler. A nil limiter or a limit of
// zero disables rate limiting.
func NewChatHandler(dialog Dialog, limiter RateLimiter, limit int, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{dialog: dialog, limiter: limiter, limit: limit, logger: logger}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = dto.DefaultUserID
	}

	ctx := c.Request.Context()
	if h.limiter != nil && h.limit > 0 {
		allowed, err := h.limiter.CheckRateLimit(ctx, userID, h.limit)
		if err != nil {
			// the limiter is best effort; a broken Redis must not block chats
			h.logger.Warn("Failed to check rate limit",
				zap.String("user_id", userID),
				zap.Error(err))
		} else if !allowed {
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "Too many messages, please slow down"})
			return
		}
	}

	reply := h.dialog.Handle(ctx, userID, req.Message)
	c.JSON(http.StatusOK, dto.ChatResponse{Response: reply})
}
