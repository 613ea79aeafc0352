// Package flow runs multi-step dialogs. A Flow is an ordered list of steps;
// the Engine walks a user through them, validating each answer and storing
// it in the user's session until the last step completes.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/session"
)

// Step is one question in a flow. Validate may normalize the answer; the
// normalized value is stored under Key. Check runs after Validate and may
// consult stores; a ValidationError from either re-prompts the same step.
type Step struct {
	Name     string
	Key      string
	Prompt   string
	Validate Validator
	Check    func(ctx context.Context, value string) error
}

// Flow is a named ordered sequence of steps.
type Flow struct {
	Name  string
	Steps []Step
}

// step returns the step with the given name and its index.
func (f Flow) step(name string) (Step, int, bool) {
	for i, s := range f.Steps {
		if s.Name == name {
			return s, i, true
		}
	}
	return Step{}, 0, false
}

// Result is the outcome of feeding one message into the engine.
type Result struct {
	// Done is set when the flow's last step was answered. Flow and Data then
	// carry everything the terminal action needs; the session is closed.
	Done bool
	Flow string
	Data map[string]string

	// Prompt is the text to send next: the following step's question, or on
	// a rejected answer the same step's question again.
	Prompt string
	// Hint is set on a rejected answer and explains what was wrong.
	Hint string
}

// Engine walks users through registered flows on top of a session store.
type Engine struct {
	store session.Store
	flows map[string]Flow
	log   *slog.Logger
}

// NewEngine builds an engine over the given store and flow set.
func NewEngine(store session.Store, flows ...Flow) (*Engine, error) {
	e := &Engine{
		store: store,
		flows: make(map[string]Flow, len(flows)),
		log:   logger.Component("flow"),
	}
	for _, f := range flows {
		if err := checkFlow(f); err != nil {
			return nil, err
		}
		if _, dup := e.flows[f.Name]; dup {
			return nil, fmt.Errorf("flow %q registered twice", f.Name)
		}
		e.flows[f.Name] = f
	}
	return e, nil
}

func checkFlow(f Flow) error {
	if f.Name == "" {
		return errors.New("flow with empty name")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", f.Name)
	}
	seen := make(map[string]bool, len(f.Steps))
	for _, s := range f.Steps {
		if s.Name == "" || s.Key == "" {
			return fmt.Errorf("flow %q has a step without name or key", f.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("flow %q repeats step %q", f.Name, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Start opens a session on the flow's first step and returns its prompt.
// Returns domain.ErrAlreadyActive when the user is mid-flow elsewhere.
func (e *Engine) Start(ctx context.Context, userID int64, flowName string) (string, error) {
	return e.StartWith(ctx, userID, flowName, nil)
}

// StartWith opens a session preloaded with seed data. Buttons that launch a
// flow (role picker, queue reject) carry their payload in the seed.
func (e *Engine) StartWith(ctx context.Context, userID int64, flowName string, seed map[string]string) (string, error) {
	f, ok := e.flows[flowName]
	if !ok {
		return "", fmt.Errorf("unknown flow %q", flowName)
	}
	first := f.Steps[0]
	if err := e.store.Begin(userID, f.Name, first.Name); err != nil {
		return "", err
	}
	if len(seed) > 0 {
		if err := e.store.Advance(userID, first.Name, seed); err != nil {
			return "", err
		}
	}
	e.log.Info("flow started",
		slog.String("event", "flow.start"),
		slog.Int64("user_id", userID),
		slog.String("flow", f.Name),
		slog.String("state", first.Name),
	)
	return first.Prompt, nil
}

// Abandon closes the user's session without completing it.
func (e *Engine) Abandon(ctx context.Context, userID int64) {
	if s, ok := e.store.Get(userID); ok {
		e.log.Info("flow abandoned",
			slog.String("event", "flow.abandon"),
			slog.Int64("user_id", userID),
			slog.String("flow", s.Flow),
			slog.String("state", s.State),
		)
	}
	e.store.End(userID)
}

// InProgress reports whether the user has a live session.
func (e *Engine) InProgress(userID int64) bool {
	_, ok := e.store.Get(userID)
	return ok
}

// Input feeds one message into the user's active flow.
// Returns domain.ErrNoActiveSession when the user is not mid-flow.
func (e *Engine) Input(ctx context.Context, userID int64, text string) (Result, error) {
	s, ok := e.store.Get(userID)
	if !ok {
		return Result{}, domain.ErrNoActiveSession
	}
	f, ok := e.flows[s.Flow]
	if !ok {
		// Session points at a flow that is no longer registered. Drop it.
		e.store.End(userID)
		return Result{}, fmt.Errorf("session for unknown flow %q", s.Flow)
	}
	step, idx, ok := f.step(s.State)
	if !ok {
		e.store.End(userID)
		return Result{}, fmt.Errorf("flow %q has no step %q", f.Name, s.State)
	}

	value := text
	if step.Validate != nil {
		normalized, err := step.Validate(text)
		if reject, res := e.rejected(userID, f.Name, step, err); reject {
			return res, nil
		}
		if err != nil {
			return Result{}, err
		}
		value = normalized
	}
	if step.Check != nil {
		err := step.Check(ctx, value)
		if reject, res := e.rejected(userID, f.Name, step, err); reject {
			return res, nil
		}
		if err != nil {
			return Result{}, err
		}
	}

	collected := map[string]string{step.Key: value}
	last := idx == len(f.Steps)-1
	if last {
		if err := e.store.Advance(userID, step.Name, collected); err != nil {
			return Result{}, err
		}
		done, _ := e.store.Get(userID)
		e.store.End(userID)
		e.log.Info("flow completed",
			slog.String("event", "flow.done"),
			slog.Int64("user_id", userID),
			slog.String("flow", f.Name),
		)
		return Result{Done: true, Flow: f.Name, Data: done.Data}, nil
	}

	next := f.Steps[idx+1]
	if err := e.store.Advance(userID, next.Name, collected); err != nil {
		return Result{}, err
	}
	return Result{Prompt: next.Prompt}, nil
}

// rejected converts a ValidationError into a same-step re-prompt result.
func (e *Engine) rejected(userID int64, flowName string, step Step, err error) (bool, Result) {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false, Result{}
	}
	e.log.Debug("answer rejected",
		slog.String("event", "flow.reject"),
		slog.Int64("user_id", userID),
		slog.String("flow", flowName),
		slog.String("state", step.Name),
		slog.String("code", verr.Code),
	)
	return true, Result{Prompt: step.Prompt, Hint: verr.Hint}
}
