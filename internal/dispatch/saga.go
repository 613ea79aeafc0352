package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
)

// sagaStep is one mutation in a terminal action. Compensate undoes Apply;
// steps without side effects to undo leave it nil.
type sagaStep struct {
	name       string
	apply      func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga is an ordered mutation sequence. On a mid-sequence failure the
// already-applied steps are compensated in reverse order and the caller
// gets a PartialMutationError.
type saga struct {
	name  string
	steps []sagaStep
}

func (s saga) run(ctx context.Context) error {
	log := logger.Component("dispatch")
	for i, step := range s.steps {
		err := step.apply(ctx)
		if err == nil {
			continue
		}
		log.Error("action step failed",
			slog.String("event", "action.fail"),
			slog.String("action", s.name),
			slog.String("step", step.name),
			slog.String("err", err.Error()),
		)
		var comp []error
		for j := i - 1; j >= 0; j-- {
			undo := s.steps[j]
			if undo.compensate == nil {
				continue
			}
			if cerr := undo.compensate(ctx); cerr != nil {
				comp = append(comp, fmt.Errorf("undo %s: %w", undo.name, cerr))
				log.Error("compensation failed",
					slog.String("event", "action.compensate_fail"),
					slog.String("action", s.name),
					slog.String("step", undo.name),
					slog.String("err", cerr.Error()),
				)
			}
		}
		return &domain.PartialMutationError{
			Action:       s.name,
			FailedStep:   step.name,
			Err:          err,
			Compensation: comp,
		}
	}
	return nil
}
