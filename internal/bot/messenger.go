package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/campusgate/campusbot/core/telegram/keyboard"
	"github.com/campusgate/campusbot/internal/domain"
)

// TelebotMessenger adapts a running tele.Bot to the domain Messenger
// contract. The bot instance exists only after the transport starts, so the
// messenger is constructed unbound and bound from the start hook.
type TelebotMessenger struct {
	bot atomic.Pointer[tele.Bot]
}

// NewMessenger constructs an unbound messenger.
func NewMessenger() *TelebotMessenger {
	return &TelebotMessenger{}
}

// Bind attaches the live bot. Handlers never run before the transport is
// up, so sends cannot observe an unbound messenger in practice.
func (m *TelebotMessenger) Bind(b *tele.Bot) {
	m.bot.Store(b)
}

func (m *TelebotMessenger) Send(_ context.Context, to domain.Recipient, text string, rows ...domain.ButtonRow) (domain.MessageHandle, error) {
	b := m.bot.Load()
	if b == nil {
		return domain.MessageHandle{}, &domain.DeliveryError{To: to, Err: errNotBound}
	}
	var opts []interface{}
	if markup := markupFor(rows); markup != nil {
		opts = append(opts, markup)
	}
	msg, err := b.Send(recipientFor(to), text, opts...)
	if err != nil {
		return domain.MessageHandle{}, &domain.DeliveryError{To: to, Err: err}
	}
	return domain.MessageHandle{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (m *TelebotMessenger) Edit(_ context.Context, h domain.MessageHandle, text string, rows ...domain.ButtonRow) error {
	b := m.bot.Load()
	if b == nil {
		return errNotBound
	}
	var opts []interface{}
	if markup := markupFor(rows); markup != nil {
		opts = append(opts, markup)
	}
	_, err := b.Edit(storedRef(h), text, opts...)
	return err
}

func (m *TelebotMessenger) Delete(_ context.Context, h domain.MessageHandle) error {
	b := m.bot.Load()
	if b == nil {
		return errNotBound
	}
	return b.Delete(storedRef(h))
}

var errNotBound = fmt.Errorf("telegram transport not started")

// recipientFor maps a recipient onto a telebot destination. Direct messages
// go to the private chat, whose id equals the user id.
func recipientFor(to domain.Recipient) tele.Recipient {
	if to.UserID != 0 {
		return tele.ChatID(to.UserID)
	}
	return tele.ChatID(to.ChatID)
}

func storedRef(h domain.MessageHandle) tele.Editable {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(h.MessageID),
		ChatID:    h.ChatID,
	}
}

func markupFor(rows []domain.ButtonRow) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	converted := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{
				Text:   b.Text,
				Unique: b.Action,
				Data:   b.Data,
			})
		}
		converted = append(converted, btns)
	}
	return keyboard.InlineButtonsRows(converted...)
}
