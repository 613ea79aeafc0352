// Package queue implements moderation queue browsing. A queue is browsed one
// item at a time with a cyclic cursor per chat; every step reloads the list
// so reviewed items vanish immediately for all operators.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
)

// Navigation button actions carried in callback payloads.
const (
	ActionNext = "q.next"
	ActionStop = "q.stop"
)

// Item is one formatted queue entry plus its review buttons.
type Item struct {
	ID      int64
	Text    string
	Actions []domain.ButtonRow
}

// Definition binds a queue kind to its loader and empty-state text.
type Definition struct {
	Kind  domain.QueueKind
	Load  func(ctx context.Context) ([]Item, error)
	Empty string
}

// View is what gets shown to the operator.
type View struct {
	Text    string
	Buttons []domain.ButtonRow
	// Empty is set when the queue has nothing pending. Empty views carry
	// no review or navigation controls.
	Empty bool
}

type cursorKey struct {
	chatID int64
	kind   domain.QueueKind
}

// Navigator keeps a browsing cursor per (chat, kind) pair.
type Navigator struct {
	mu      sync.Mutex
	defs    map[domain.QueueKind]Definition
	cursors map[cursorKey]int
	log     *slog.Logger
}

// NewNavigator builds a navigator over the given queue definitions.
func NewNavigator(defs ...Definition) (*Navigator, error) {
	n := &Navigator{
		defs:    make(map[domain.QueueKind]Definition, len(defs)),
		cursors: make(map[cursorKey]int),
		log:     logger.Component("queue"),
	}
	for _, d := range defs {
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("queue definition with invalid kind %q", d.Kind)
		}
		if d.Load == nil {
			return nil, fmt.Errorf("queue %s has no loader", d.Kind)
		}
		if _, dup := n.defs[d.Kind]; dup {
			return nil, fmt.Errorf("queue %s defined twice", d.Kind)
		}
		n.defs[d.Kind] = d
	}
	return n, nil
}

// Open starts browsing at the head of a freshly loaded queue.
func (n *Navigator) Open(ctx context.Context, chatID int64, kind domain.QueueKind) (View, error) {
	return n.show(ctx, chatID, kind, func(_ int, _ bool, _ int) int { return 0 })
}

// Next reloads the queue and advances the cursor cyclically. A chat without
// a cursor (stopped, or never opened) starts at the head.
func (n *Navigator) Next(ctx context.Context, chatID int64, kind domain.QueueKind) (View, error) {
	return n.show(ctx, chatID, kind, func(cur int, known bool, total int) int {
		if !known {
			return 0
		}
		return (cur + 1) % total
	})
}

// Current reloads the queue and re-renders at the cursor position, clamped
// into the new list. Used to redraw after an item was reviewed away.
func (n *Navigator) Current(ctx context.Context, chatID int64, kind domain.QueueKind) (View, error) {
	return n.show(ctx, chatID, kind, func(cur int, _ bool, total int) int { return cur % total })
}

// Stop drops the chat's cursor for the kind.
func (n *Navigator) Stop(chatID int64, kind domain.QueueKind) {
	n.mu.Lock()
	delete(n.cursors, cursorKey{chatID: chatID, kind: kind})
	n.mu.Unlock()
	n.log.Debug("browsing stopped",
		slog.String("event", "queue.stop"),
		slog.String("kind", string(kind)),
		slog.Int64("chat_id", chatID),
	)
}

func (n *Navigator) show(ctx context.Context, chatID int64, kind domain.QueueKind, pick func(cur int, known bool, total int) int) (View, error) {
	def, ok := n.defs[kind]
	if !ok {
		return View{}, fmt.Errorf("unknown queue kind %q", kind)
	}
	items, err := def.Load(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load queue %s: %w", kind, err)
	}

	key := cursorKey{chatID: chatID, kind: kind}
	if len(items) == 0 {
		n.mu.Lock()
		delete(n.cursors, key)
		n.mu.Unlock()
		return View{Text: def.Empty, Empty: true}, nil
	}

	n.mu.Lock()
	cur, known := n.cursors[key]
	idx := pick(cur, known, len(items))
	n.cursors[key] = idx
	n.mu.Unlock()

	item := items[idx]
	n.log.Debug("queue shown",
		slog.String("event", "queue.show"),
		slog.String("kind", string(kind)),
		slog.Int64("chat_id", chatID),
		slog.Int("index", idx),
		slog.Int("pending", len(items)),
	)
	return View{
		Text:    fmt.Sprintf("Заявок в очереди: %d\n\n%s", len(items), item.Text),
		Buttons: append(append([]domain.ButtonRow(nil), item.Actions...), navRow(kind)),
	}, nil
}

func navRow(kind domain.QueueKind) domain.ButtonRow {
	return domain.ButtonRow{
		{Text: "Далее ➡️", Action: ActionNext, Data: string(kind)},
		{Text: "Стоп ⏹", Action: ActionStop, Data: string(kind)},
	}
}
