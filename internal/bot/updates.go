package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/dsa-drill/internal/session"
)

// Handler consumes converted chat events.
type Handler interface {
	Handle(ctx context.Context, ev session.Event) error
}

// Config tunes the update loop.
type Config struct {
	// MaxConcurrent bounds in-flight updates. Updates of one user may run
	// concurrently; the store keeps them consistent.
	MaxConcurrent int
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	// HandleTimeout bounds a single update, including provider calls.
	HandleTimeout time.Duration
}

// Bot polls Telegram for updates and dispatches them to a Handler.
type Bot struct {
	api     api
	handler Handler
	cfg     Config
	logger  *slog.Logger
}

// New creates a Bot. Use tgbotapi.NewBotAPI to obtain the client.
func New(client api, handler Handler, cfg Config, logger *slog.Logger) *Bot {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{api: client, handler: handler, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled, then stops polling and waits for
// in-flight updates to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	var g errgroup.Group
	g.SetLimit(b.cfg.MaxConcurrent)

	b.logger.Info("Bot polling started", "max_concurrent", b.cfg.MaxConcurrent)
	defer func() {
		_ = g.Wait()
		b.logger.Info("Bot polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			g.Go(func() error {
				b.dispatch(ctx, ev)
				return nil
			})
		}
	}
}

// dispatch handles one event. In-flight work is not cut short by shutdown.
func (b *Bot) dispatch(parent context.Context, ev session.Event) {
	ev.ID = uuid.NewString()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.cfg.HandleTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update", "event_id", ev.ID, "panic", fmt.Sprint(r))
		}
	}()
	if err := b.handler.Handle(ctx, ev); err != nil {
		b.logger.Warn("Failed to handle update", "event_id", ev.ID, "user_id", ev.UserID, "error", err)
	}
}

// ToEvent converts a Telegram update. Updates the bot does not act on
// report false.
func ToEvent(update tgbotapi.Update) (session.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return session.Event{}, false
		}
		return session.Event{
			Kind:        session.EventButton,
			UserID:      cq.From.ID,
			DisplayName: cq.From.FirstName,
			ChatID:      cq.Message.Chat.ID,
			MessageID:   cq.Message.MessageID,
			CallbackID:  cq.ID,
			Button:      cq.Data,
		}, true
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil || msg.Text == "" {
			return session.Event{}, false
		}
		ev := session.Event{
			Kind:        session.EventText,
			UserID:      msg.From.ID,
			DisplayName: msg.From.FirstName,
			ChatID:      msg.Chat.ID,
			MessageID:   msg.MessageID,
			Text:        msg.Text,
		}
		if isStart(msg.Text) {
			ev.Kind = session.EventStart
		}
		return ev, true
	default:
		return session.Event{}, false
	}
}

func isStart(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}
