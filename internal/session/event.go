// Package session dispatches chat events to the problem generator and the
// grader, and keeps each user's mission state consistent.
package session

import (
	"context"
	"fmt"
)

// EventKind categorizes inbound chat events.
type EventKind int

const (
	// EventStart is the /start command.
	EventStart EventKind = iota + 1
	// EventButton is an inline keyboard button press.
	EventButton
	// EventText is a free-text message.
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventButton:
		return "button"
	case EventText:
		return "text"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Button identifiers carried in callback data.
const (
	ButtonProblem = "problem"
	ButtonStatus  = "status"
	ButtonAbout   = "about"
)

// Event is one inbound chat event tagged with the sender's identity.
type Event struct {
	ID          string
	Kind        EventKind
	UserID      int64
	DisplayName string
	ChatID      int64
	// MessageID is the text message for EventText, or the message carrying
	// the pressed button for EventButton.
	MessageID  int
	CallbackID string
	Button     string
	Text       string
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Message is an outbound chat message.
type Message struct {
	Text     string
	Keyboard Keyboard
	Markdown bool
	ReplyTo  int
}

// Messenger delivers responses through the chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg Message) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, msg Message) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}
