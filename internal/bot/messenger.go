package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ashureev/dsa-drill/internal/session"
)

// api is the subset of *tgbotapi.BotAPI used by the adapter.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ api = (*tgbotapi.BotAPI)(nil)

// Messenger implements session.Messenger over the Telegram Bot API.
type Messenger struct {
	api    api
	logger *slog.Logger
}

var _ session.Messenger = (*Messenger)(nil)

// NewMessenger wraps an authenticated bot client.
func NewMessenger(client api, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{api: client, logger: logger}
}

// Send posts a message and returns its id. A Markdown message Telegram
// cannot parse is resent as plain text.
func (m *Messenger) Send(ctx context.Context, chatID int64, msg session.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	build := func(markdown bool) tgbotapi.Chattable {
		cfg := tgbotapi.NewMessage(chatID, msg.Text)
		cfg.ReplyToMessageID = msg.ReplyTo
		if markdown {
			cfg.ParseMode = tgbotapi.ModeMarkdown
		}
		if kb := inlineKeyboard(msg.Keyboard); kb != nil {
			cfg.ReplyMarkup = *kb
		}
		return cfg
	}

	sent, err := m.api.Send(build(msg.Markdown))
	if err != nil && msg.Markdown && isParseError(err) {
		m.logger.Warn("Markdown rejected, resending as plain text", "chat_id", chatID, "error", err)
		sent, err = m.api.Send(build(false))
	}
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text and keyboard of an existing message.
func (m *Messenger) Edit(ctx context.Context, chatID int64, messageID int, msg session.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	build := func(markdown bool) tgbotapi.Chattable {
		cfg := tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
		if markdown {
			cfg.ParseMode = tgbotapi.ModeMarkdown
		}
		cfg.ReplyMarkup = inlineKeyboard(msg.Keyboard)
		return cfg
	}

	_, err := m.api.Request(build(msg.Markdown))
	if err != nil && msg.Markdown && isParseError(err) {
		m.logger.Warn("Markdown rejected, editing as plain text", "chat_id", chatID, "error", err)
		_, err = m.api.Request(build(false))
	}
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally as a modal alert.
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if callbackID == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// Delete removes a message.
func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func inlineKeyboard(kb session.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func apiError(err error) (*tgbotapi.Error, bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

func isParseError(err error) bool {
	tgErr, ok := apiError(err)
	return ok && tgErr.Code == 400 && strings.Contains(tgErr.Message, "can't parse entities")
}

func isNotModified(err error) bool {
	tgErr, ok := apiError(err)
	return ok && tgErr.Code == 400 && strings.Contains(tgErr.Message, "message is not modified")
}
