package flows

import (
	"context"
	"testing"

	"github.com/campusgate/campusbot/internal/flow"
	"github.com/campusgate/campusbot/internal/session"
)

func staticExists(known ...int64) func(context.Context, int64) (bool, error) {
	set := make(map[int64]bool, len(known))
	for _, id := range known {
		set[id] = true
	}
	return func(_ context.Context, id int64) (bool, error) {
		return set[id], nil
	}
}

func newEngine(t *testing.T, d Deps) *flow.Engine {
	t.Helper()
	e, err := flow.NewEngine(session.NewMemoryStore(0), All(d)...)
	if err != nil {
		t.Fatalf("NewEngine over All(): %v", err)
	}
	return e
}

func TestAllFlowsRegister(t *testing.T) {
	newEngine(t, Deps{})
}

func TestPassRequestCollectsFormatOnlyBirthday(t *testing.T) {
	e := newEngine(t, Deps{})
	ctx := context.Background()
	if _, err := e.Start(ctx, 1, PassRequest); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Input(ctx, 1, "ИС-21"); err != nil {
		t.Fatalf("group: %v", err)
	}

	r, err := e.Input(ctx, 1, "tomorrow")
	if err != nil {
		t.Fatalf("bad date: %v", err)
	}
	if r.Hint == "" {
		t.Fatal("malformed date accepted")
	}

	// Impossible but well-formed date passes; review is a human concern.
	r, err = e.Input(ctx, 1, "30.02.2024")
	if err != nil || r.Hint != "" {
		t.Fatalf("formatted date rejected: result=%+v err=%v", r, err)
	}

	r, err = e.Input(ctx, 1, "потерял пропуск")
	if err != nil || !r.Done {
		t.Fatalf("completion: result=%+v err=%v", r, err)
	}
	if r.Data[KeyBirthday] != "30.02.2024" || r.Data[KeyGroup] != "ИС-21" {
		t.Fatalf("collected data = %v", r.Data)
	}
}

func TestRoleAssignChecksTargetExists(t *testing.T) {
	e := newEngine(t, Deps{UserExists: staticExists(100)})
	ctx := context.Background()
	seed := map[string]string{KeyRole: "dean"}
	if _, err := e.StartWith(ctx, 2, RoleAssign, seed); err != nil {
		t.Fatalf("StartWith: %v", err)
	}

	r, err := e.Input(ctx, 2, "999")
	if err != nil {
		t.Fatalf("unknown target: %v", err)
	}
	if r.Done || r.Hint == "" {
		t.Fatalf("unknown target not re-prompted: %+v", r)
	}

	r, err = e.Input(ctx, 2, "100")
	if err != nil || !r.Done {
		t.Fatalf("known target: result=%+v err=%v", r, err)
	}
	if r.Data[KeyTargetID] != "100" {
		t.Fatalf("target id = %q", r.Data[KeyTargetID])
	}
	if r.Data[KeyRole] != "dean" {
		t.Fatal("seeded role lost on completion")
	}
}

func TestBlacklistRemoveRequiresBarredUser(t *testing.T) {
	e := newEngine(t, Deps{IsBarred: staticExists(50)})
	ctx := context.Background()
	if _, err := e.Start(ctx, 3, BlacklistRemove); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r, err := e.Input(ctx, 3, "51")
	if err != nil {
		t.Fatalf("not barred: %v", err)
	}
	if r.Done || r.Hint == "" {
		t.Fatalf("unbarred user accepted: %+v", r)
	}

	r, err = e.Input(ctx, 3, "50")
	if err != nil || !r.Done {
		t.Fatalf("barred user: result=%+v err=%v", r, err)
	}
}

func TestNewsEditChecksIDBeforeAskingContent(t *testing.T) {
	e := newEngine(t, Deps{NewsExists: staticExists(7)})
	ctx := context.Background()
	if _, err := e.Start(ctx, 4, NewsEdit); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r, err := e.Input(ctx, 4, "8")
	if err != nil {
		t.Fatalf("missing news: %v", err)
	}
	if r.Hint == "" {
		t.Fatal("missing news id accepted")
	}

	r, err = e.Input(ctx, 4, "7")
	if err != nil || r.Done {
		t.Fatalf("existing id: result=%+v err=%v", r, err)
	}
	if r.Prompt == "" {
		t.Fatal("no title prompt after id step")
	}
}
