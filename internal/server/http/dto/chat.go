package dto

import "posterbot/internal/bot"

// DefaultUserID is used when a chat request carries no user_id.
const DefaultUserID = "web_guest"

type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type ChatResponse struct {
	Response bot.Message `json:"response"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
