package queue

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/campusgate/campusbot/internal/domain"
)

// listLoader serves items from a mutable slice so tests can model records
// being reviewed away between reloads.
type listLoader struct {
	items []Item
	loads int
}

func (l *listLoader) load(context.Context) ([]Item, error) {
	l.loads++
	return append([]Item(nil), l.items...), nil
}

func makeItems(ids ...int64) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, Item{
			ID:   id,
			Text: fmt.Sprintf("запись #%d", id),
			Actions: []domain.ButtonRow{{
				{Text: "Одобрить", Action: "cert.approve", Data: fmt.Sprint(id)},
			}},
		})
	}
	return out
}

func newTestNavigator(t *testing.T, l *listLoader) *Navigator {
	t.Helper()
	n, err := NewNavigator(Definition{
		Kind:  domain.QueueCertificate,
		Load:  l.load,
		Empty: "Заявок нет",
	})
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	return n
}

func TestOpenShowsHeadWithCountAndControls(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2, 3)}
	n := newTestNavigator(t, l)

	v, err := n.Open(context.Background(), 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v.Empty {
		t.Fatal("non-empty queue reported empty")
	}
	if !strings.Contains(v.Text, "Заявок в очереди: 3") {
		t.Fatalf("header missing from %q", v.Text)
	}
	if !strings.Contains(v.Text, "запись #1") {
		t.Fatalf("head item missing from %q", v.Text)
	}
	// One review row plus the navigation row.
	if len(v.Buttons) != 2 {
		t.Fatalf("button rows = %d, want 2", len(v.Buttons))
	}
	nav := v.Buttons[len(v.Buttons)-1]
	if nav[0].Action != ActionNext || nav[1].Action != ActionStop {
		t.Fatalf("nav row = %+v", nav)
	}
}

func TestNextWrapsCyclically(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2, 3)}
	n := newTestNavigator(t, l)
	ctx := context.Background()

	if _, err := n.Open(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []string{"#2", "#3", "#1", "#2"}
	for i, id := range want {
		v, err := n.Next(ctx, 500, domain.QueueCertificate)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if !strings.Contains(v.Text, "запись "+id) {
			t.Fatalf("Next %d shows %q, want item %s", i, v.Text, id)
		}
	}
}

func TestNextReloadsFreshList(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2, 3)}
	n := newTestNavigator(t, l)
	ctx := context.Background()

	if _, err := n.Open(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Item 2 is reviewed away by another operator between steps.
	l.items = makeItems(1, 3)
	v, err := n.Next(ctx, 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(v.Text, "Заявок в очереди: 2") {
		t.Fatalf("stale count in %q", v.Text)
	}
	if !strings.Contains(v.Text, "запись #3") {
		t.Fatalf("got %q, want item #3 after reload", v.Text)
	}
	if l.loads != 2 {
		t.Fatalf("loads = %d, want a reload per step", l.loads)
	}
}

func TestEmptyQueueHasNoControls(t *testing.T) {
	l := &listLoader{}
	n := newTestNavigator(t, l)

	v, err := n.Open(context.Background(), 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !v.Empty || v.Text != "Заявок нет" {
		t.Fatalf("empty view = %+v", v)
	}
	if len(v.Buttons) != 0 {
		t.Fatalf("empty view carries %d button rows", len(v.Buttons))
	}
}

func TestCurrentClampsAfterShrink(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2)}
	n := newTestNavigator(t, l)
	ctx := context.Background()

	if _, err := n.Open(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := n.Next(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Next: %v", err)
	}
	// The item under the cursor is reviewed away; redraw lands on a live one.
	l.items = makeItems(1)
	v, err := n.Current(ctx, 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !strings.Contains(v.Text, "запись #1") {
		t.Fatalf("got %q after shrink", v.Text)
	}

	// Draining the queue entirely yields the drained view.
	l.items = nil
	v, err = n.Current(ctx, 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Current drained: %v", err)
	}
	if !v.Empty {
		t.Fatal("drained queue not reported empty")
	}
}

func TestCursorsAreIndependentPerChat(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2, 3)}
	n := newTestNavigator(t, l)
	ctx := context.Background()

	if _, err := n.Open(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Open chat 500: %v", err)
	}
	if _, err := n.Next(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Next chat 500: %v", err)
	}

	v, err := n.Open(ctx, 600, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Open chat 600: %v", err)
	}
	if !strings.Contains(v.Text, "запись #1") {
		t.Fatalf("chat 600 opened at %q, want head", v.Text)
	}
}

func TestStopForgetsCursor(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2, 3)}
	n := newTestNavigator(t, l)
	ctx := context.Background()

	if _, err := n.Open(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := n.Next(ctx, 500, domain.QueueCertificate); err != nil {
		t.Fatalf("Next: %v", err)
	}
	n.Stop(500, domain.QueueCertificate)

	v, err := n.Open(ctx, 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !strings.Contains(v.Text, "запись #1") {
		t.Fatalf("reopen after Stop shows %q, want head", v.Text)
	}
}

func TestNextWithoutOpenStartsAtHead(t *testing.T) {
	l := &listLoader{items: makeItems(1, 2)}
	n := newTestNavigator(t, l)

	v, err := n.Next(context.Background(), 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(v.Text, "запись #1") {
		t.Fatalf("view = %q, want head item", v.Text)
	}

	// The cursor exists now, so the following press advances.
	v, err = n.Next(context.Background(), 500, domain.QueueCertificate)
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if !strings.Contains(v.Text, "запись #2") {
		t.Fatalf("view = %q, want second item", v.Text)
	}
}
