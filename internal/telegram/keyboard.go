package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const buttonsPerRow = 2

// replyKeyboard lays options out two per row, in order. No options
// removes any keyboard shown before so the user can type freely.
func replyKeyboard(options []string) interface{} {
	if len(options) == 0 {
		return tgbotapi.NewRemoveKeyboard(true)
	}

	var rows [][]tgbotapi.KeyboardButton
	for start := 0; start < len(options); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(options))
		row := make([]tgbotapi.KeyboardButton, 0, end-start)
		for _, opt := range options[start:end] {
			row = append(row, tgbotapi.NewKeyboardButton(opt))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}
