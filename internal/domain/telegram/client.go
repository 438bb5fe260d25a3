package telegram

import "gopkg.in/telebot.v3"

// Client sends outward messages via a Telegram bot.
// This keeps application logic independent of the bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (*telebot.Message, error)
}
