package domain

import (
	"context"
	"fmt"
)

// Recipient addresses an outbound message either by chat or by user.
// Exactly one of the two fields is set.
type Recipient struct {
	ChatID int64
	UserID int64
}

// Chat addresses a message to a chat.
func Chat(id int64) Recipient { return Recipient{ChatID: id} }

// ToUser addresses a direct message to a user.
func ToUser(id int64) Recipient { return Recipient{UserID: id} }

func (r Recipient) String() string {
	if r.UserID != 0 {
		return fmt.Sprintf("user:%d", r.UserID)
	}
	return fmt.Sprintf("chat:%d", r.ChatID)
}

// Button is a single inline action button. Action is the callback key;
// Data carries the typed payload arguments.
type Button struct {
	Text   string
	Action string
	Data   string
}

// ButtonRow is one keyboard row.
type ButtonRow []Button

// MessageHandle identifies a sent message for later edit/delete.
type MessageHandle struct {
	ChatID    int64
	MessageID int
}

// Messenger is the outbound chat transport consumed by the core. Failures
// surface as error values; callers decide whether a failed delivery is fatal
// for the operation at hand.
type Messenger interface {
	Send(ctx context.Context, to Recipient, text string, buttons ...ButtonRow) (MessageHandle, error)
	Edit(ctx context.Context, h MessageHandle, text string, buttons ...ButtonRow) error
	Delete(ctx context.Context, h MessageHandle) error
}
