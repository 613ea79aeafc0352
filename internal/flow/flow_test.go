package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/session"
)

func testFlow() Flow {
	return Flow{
		Name: "certificate-request",
		Steps: []Step{
			{Name: "await_name", Key: "full_name", Prompt: "Введите ФИО", Validate: NonEmpty("укажите ФИО")},
			{Name: "await_group", Key: "group", Prompt: "Введите группу", Validate: NonEmpty("укажите группу")},
			{Name: "await_count", Key: "count", Prompt: "Сколько справок?", Validate: IntInRange(1, 5)},
		},
	}
}

func newTestEngine(t *testing.T, flows ...Flow) *Engine {
	t.Helper()
	e, err := NewEngine(session.NewMemoryStore(0), flows...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestHappyPathCollectsAllAnswers(t *testing.T) {
	e := newTestEngine(t, testFlow())
	ctx := context.Background()

	prompt, err := e.Start(ctx, 10, "certificate-request")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if prompt != "Введите ФИО" {
		t.Fatalf("first prompt = %q", prompt)
	}

	r, err := e.Input(ctx, 10, "Иванов Иван")
	if err != nil || r.Done {
		t.Fatalf("step 1: result=%+v err=%v", r, err)
	}
	if r.Prompt != "Введите группу" {
		t.Fatalf("step 1 prompt = %q", r.Prompt)
	}

	r, err = e.Input(ctx, 10, "ИС-21")
	if err != nil || r.Done {
		t.Fatalf("step 2: result=%+v err=%v", r, err)
	}

	r, err = e.Input(ctx, 10, "3")
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if !r.Done {
		t.Fatal("flow did not complete on last step")
	}
	if r.Flow != "certificate-request" {
		t.Fatalf("completed flow = %q", r.Flow)
	}
	want := map[string]string{"full_name": "Иванов Иван", "group": "ИС-21", "count": "3"}
	for k, v := range want {
		if r.Data[k] != v {
			t.Fatalf("data[%q] = %q, want %q", k, r.Data[k], v)
		}
	}
	if e.InProgress(10) {
		t.Fatal("session still open after completion")
	}
}

func TestRejectedAnswerKeepsState(t *testing.T) {
	e := newTestEngine(t, testFlow())
	ctx := context.Background()
	if _, err := e.Start(ctx, 11, "certificate-request"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Input(ctx, 11, "Иванов"); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if _, err := e.Input(ctx, 11, "ИС-21"); err != nil {
		t.Fatalf("step 2: %v", err)
	}

	// Out of range, then not a number. Both keep the user on the same step.
	r, err := e.Input(ctx, 11, "9")
	if err != nil {
		t.Fatalf("bad count: %v", err)
	}
	if r.Done || r.Hint == "" || r.Prompt != "Сколько справок?" {
		t.Fatalf("out-of-range result = %+v", r)
	}
	r, err = e.Input(ctx, 11, "три")
	if err != nil {
		t.Fatalf("bad count: %v", err)
	}
	if r.Done || r.Hint == "" {
		t.Fatalf("not-a-number result = %+v", r)
	}

	r, err = e.Input(ctx, 11, "5")
	if err != nil || !r.Done {
		t.Fatalf("recovery failed: result=%+v err=%v", r, err)
	}
}

func TestInputWithoutSession(t *testing.T) {
	e := newTestEngine(t, testFlow())
	_, err := e.Input(context.Background(), 99, "anything")
	if !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("got %v, want ErrNoActiveSession", err)
	}
}

func TestStartWhileActiveReturnsErrAlreadyActive(t *testing.T) {
	e := newTestEngine(t, testFlow())
	ctx := context.Background()
	if _, err := e.Start(ctx, 12, "certificate-request"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := e.Start(ctx, 12, "certificate-request")
	if !errors.Is(err, domain.ErrAlreadyActive) {
		t.Fatalf("got %v, want ErrAlreadyActive", err)
	}
}

func TestAbandonFreesTheUser(t *testing.T) {
	e := newTestEngine(t, testFlow())
	ctx := context.Background()
	if _, err := e.Start(ctx, 13, "certificate-request"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Abandon(ctx, 13)
	if e.InProgress(13) {
		t.Fatal("session survived Abandon")
	}
	if _, err := e.Start(ctx, 13, "certificate-request"); err != nil {
		t.Fatalf("restart after Abandon: %v", err)
	}
}

func TestDateValidatorIsFormatOnly(t *testing.T) {
	v := Date()
	if _, err := v("30.02.2024"); err != nil {
		t.Fatalf("format-valid impossible date rejected: %v", err)
	}
	for _, bad := range []string{"2024-02-01", "1.2.2024", "31.12.24", "завтра"} {
		if _, err := v(bad); !domain.IsValidation(err) {
			t.Fatalf("%q: got %v, want validation error", bad, err)
		}
	}
}

func TestNewEngineRejectsBrokenFlows(t *testing.T) {
	dup := Flow{Name: "x", Steps: []Step{
		{Name: "a", Key: "k1"},
		{Name: "a", Key: "k2"},
	}}
	if _, err := NewEngine(session.NewMemoryStore(0), dup); err == nil {
		t.Fatal("duplicate step accepted")
	}
	empty := Flow{Name: "y"}
	if _, err := NewEngine(session.NewMemoryStore(0), empty); err == nil {
		t.Fatal("empty flow accepted")
	}
}
