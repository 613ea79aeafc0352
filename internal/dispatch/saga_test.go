package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/campusgate/campusbot/internal/domain"
)

func TestSagaAppliesInOrder(t *testing.T) {
	var order []string
	step := func(name string) sagaStep {
		return sagaStep{
			name:  name,
			apply: func(context.Context) error { order = append(order, name); return nil },
		}
	}
	s := saga{name: "t", steps: []sagaStep{step("a"), step("b"), step("c")}}
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Fatalf("apply order = %v", order)
	}
}

func TestSagaCompensatesInReverse(t *testing.T) {
	var undone []string
	boom := errors.New("boom")
	s := saga{name: "t", steps: []sagaStep{
		{
			name:       "first",
			apply:      func(context.Context) error { return nil },
			compensate: func(context.Context) error { undone = append(undone, "first"); return nil },
		},
		{
			name:       "second",
			apply:      func(context.Context) error { return nil },
			compensate: func(context.Context) error { undone = append(undone, "second"); return nil },
		},
		{
			name:  "third",
			apply: func(context.Context) error { return boom },
		},
	}}

	err := s.run(context.Background())
	var partial *domain.PartialMutationError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialMutationError", err)
	}
	if partial.FailedStep != "third" || !errors.Is(partial, boom) {
		t.Fatalf("partial = %+v", partial)
	}
	if len(undone) != 2 || undone[0] != "second" || undone[1] != "first" {
		t.Fatalf("compensation order = %v, want reverse", undone)
	}
	if len(partial.Compensation) != 0 {
		t.Fatalf("unexpected compensation errors: %v", partial.Compensation)
	}
}

func TestSagaCollectsCompensationFailures(t *testing.T) {
	boom := errors.New("boom")
	undoFail := errors.New("undo failed")
	s := saga{name: "t", steps: []sagaStep{
		{
			name:       "first",
			apply:      func(context.Context) error { return nil },
			compensate: func(context.Context) error { return undoFail },
		},
		{
			name:  "second",
			apply: func(context.Context) error { return boom },
		},
	}}

	err := s.run(context.Background())
	var partial *domain.PartialMutationError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialMutationError", err)
	}
	if len(partial.Compensation) != 1 || !errors.Is(partial.Compensation[0], undoFail) {
		t.Fatalf("compensation errors = %v", partial.Compensation)
	}
}

func TestSagaSkipsNilCompensations(t *testing.T) {
	boom := errors.New("boom")
	s := saga{name: "t", steps: []sagaStep{
		{name: "no_undo", apply: func(context.Context) error { return nil }},
		{name: "fails", apply: func(context.Context) error { return boom }},
	}}
	err := s.run(context.Background())
	var partial *domain.PartialMutationError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialMutationError", err)
	}
}
