package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flows"
	"github.com/campusgate/campusbot/internal/queue"
)

// Replies shared across handlers.
const (
	msgCancelled    = "Действие отменено."
	msgStaleButton  = "Кнопка устарела, откройте меню заново."
	msgActionFailed = "Не удалось выполнить действие, попробуйте позже."
	msgUseButtons   = "Пожалуйста, используйте кнопки под сообщением."
	msgNoSession    = "Команда не распознана. Откройте /menu."
	msgQueueStopped = "Просмотр очереди остановлен."
)

// confirmStage is the session flow name used while a role grant or
// revocation waits for the operator's confirm button. It is not a dialog
// flow; text input during this stage is refused, not consumed.
const confirmStage = "role#confirm"

// Confirm-stage data keys, in addition to flows.KeyRole and flows.KeyTargetID.
const (
	keyMode     = "mode"
	keyPrevRole = "prev_role"

	modeAssign = "assign"
	modeRemove = "remove"
)

// Sender identifies who triggered an update and where to answer.
type Sender struct {
	UserID   int64
	ChatID   int64
	Username string
}

func (s Sender) reply() domain.Recipient { return domain.Chat(s.ChatID) }

// Dispatcher routes free text into the flow engine and button presses into
// queue navigation and terminal actions.
type Dispatcher struct {
	deps Deps
	log  *slog.Logger

	// Last queue message per chat, so navigation edits it in place
	// instead of stacking new messages.
	mu        sync.Mutex
	queueMsgs map[int64]domain.MessageHandle
}

// New constructs a Dispatcher.
func New(deps Deps) *Dispatcher {
	return &Dispatcher{
		deps:      deps,
		log:       logger.Component("dispatch"),
		queueMsgs: make(map[int64]domain.MessageHandle),
	}
}

// InProgress reports whether the user holds any session, dialog or
// confirmation stage alike.
func (dp *Dispatcher) InProgress(userID int64) bool {
	_, ok := dp.deps.Sessions.Get(userID)
	return ok
}

// OnText feeds a plain message into the user's active dialog.
func (dp *Dispatcher) OnText(ctx context.Context, from Sender, text string) error {
	if s, ok := dp.deps.Sessions.Get(from.UserID); ok && s.Flow == confirmStage {
		return dp.send(ctx, from, msgUseButtons)
	}

	r, err := dp.deps.Engine.Input(ctx, from.UserID, text)
	if errors.Is(err, domain.ErrNoActiveSession) {
		return dp.send(ctx, from, msgNoSession)
	}
	if err != nil {
		return dp.reportFailure(ctx, from, err)
	}
	if r.Done {
		if err := dp.finish(ctx, from, r.Flow, r.Data); err != nil {
			return dp.reportFailure(ctx, from, err)
		}
		return nil
	}
	if r.Hint != "" {
		return dp.send(ctx, from, r.Hint+"\n"+r.Prompt, cancelRow())
	}
	return dp.send(ctx, from, r.Prompt, cancelRow())
}

// OnButton decodes one callback press and executes it.
func (dp *Dispatcher) OnButton(ctx context.Context, from Sender, key, data string) error {
	p, err := Parse(key, data)
	if err != nil {
		dp.log.Warn("undecodable button",
			slog.String("event", "button.unknown"),
			slog.Int64("user_id", from.UserID),
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
		return dp.send(ctx, from, msgStaleButton)
	}

	if err := dp.press(ctx, from, p); err != nil {
		return dp.reportFailure(ctx, from, err)
	}
	return nil
}

func (dp *Dispatcher) press(ctx context.Context, from Sender, p Payload) error {
	switch p := p.(type) {
	case OpenQueue:
		return dp.showQueue(ctx, from, p.Kind, dp.deps.Navigator.Open)
	case NextQueue:
		return dp.showQueue(ctx, from, p.Kind, dp.deps.Navigator.Next)
	case StopQueue:
		dp.deps.Navigator.Stop(from.ChatID, p.Kind)
		return dp.closeQueue(ctx, from)
	case StartFlow:
		return dp.startFlow(ctx, from, p.Flow, nil)
	case ShowRolePicker:
		return dp.send(ctx, from, "Какую роль выдать?", rolePickerRows()...)
	case PickRole:
		return dp.startFlow(ctx, from, flows.RoleAssign, map[string]string{
			keyMode:       modeAssign,
			flows.KeyRole: string(p.Role),
		})
	case ConfirmRole:
		return dp.confirmRole(ctx, from)
	case DenyRole:
		return dp.denyRole(ctx, from)
	case CancelFlow:
		dp.deps.Engine.Abandon(ctx, from.UserID)
		return dp.send(ctx, from, msgCancelled)
	case Approve:
		return dp.review(ctx, from, p.Kind, p.ID, true)
	case Reject:
		return dp.review(ctx, from, p.Kind, p.ID, false)
	case SelfSelect:
		return dp.selfSelect(ctx, from, p.Role)
	case Subscribe:
		return dp.subscribe(ctx, from, p.Kind)
	case Unsubscribe:
		return dp.unsubscribe(ctx, from, p.Kind)
	case ShowInfo:
		return dp.showInfo(ctx, from, p.Topic)
	}
	return fmt.Errorf("unhandled payload %T", p)
}

// reportFailure answers a failed action with the generic failure text. The
// original error still propagates so the update log records it. A delivery
// failure to the sender's own chat is returned as is: replying into the same
// dead chat cannot help.
func (dp *Dispatcher) reportFailure(ctx context.Context, from Sender, err error) error {
	var derr *domain.DeliveryError
	if errors.As(err, &derr) {
		return err
	}
	if sendErr := dp.send(ctx, from, msgActionFailed); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// startFlow launches a dialog, abandoning any session the user still holds.
func (dp *Dispatcher) startFlow(ctx context.Context, from Sender, name string, seed map[string]string) error {
	if s, ok := dp.deps.Sessions.Get(from.UserID); ok {
		dp.log.Info("active session replaced",
			slog.String("event", "session.replace"),
			slog.Int64("user_id", from.UserID),
			slog.String("flow", s.Flow),
			slog.String("state", s.State),
			slog.String("next_flow", name),
		)
		dp.deps.Sessions.End(from.UserID)
	}
	prompt, err := dp.deps.Engine.StartWith(ctx, from.UserID, name, seed)
	if err != nil {
		return err
	}
	return dp.send(ctx, from, prompt, cancelRow())
}

func (dp *Dispatcher) showQueue(ctx context.Context, from Sender, kind domain.QueueKind, step queueStep) error {
	v, err := step(ctx, from.ChatID, kind)
	if err != nil {
		return err
	}
	return dp.renderQueue(ctx, from, v)
}

type queueStep func(ctx context.Context, chatID int64, kind domain.QueueKind) (queue.View, error)

// renderQueue edits the chat's queue message in place when one is known,
// otherwise sends a fresh one and remembers it.
func (dp *Dispatcher) renderQueue(ctx context.Context, from Sender, v queue.View) error {
	dp.mu.Lock()
	h, ok := dp.queueMsgs[from.ChatID]
	dp.mu.Unlock()
	if ok {
		if err := dp.deps.Messenger.Edit(ctx, h, v.Text, v.Buttons...); err == nil {
			return nil
		}
	}
	h, err := dp.deps.Messenger.Send(ctx, from.reply(), v.Text, v.Buttons...)
	if err != nil {
		return err
	}
	dp.mu.Lock()
	dp.queueMsgs[from.ChatID] = h
	dp.mu.Unlock()
	return nil
}

// closeQueue replaces the chat's queue message with a stop notice and
// forgets it.
func (dp *Dispatcher) closeQueue(ctx context.Context, from Sender) error {
	dp.mu.Lock()
	h, ok := dp.queueMsgs[from.ChatID]
	delete(dp.queueMsgs, from.ChatID)
	dp.mu.Unlock()
	if ok {
		if err := dp.deps.Messenger.Edit(ctx, h, msgQueueStopped); err == nil {
			return nil
		}
	}
	return dp.send(ctx, from, msgQueueStopped)
}

func (dp *Dispatcher) selfSelect(ctx context.Context, from Sender, role domain.Role) error {
	current, err := dp.deps.Users.Get(ctx, from.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err == nil && current.Role == domain.RoleAdmin {
		return dp.send(ctx, from, "У вас роль администратора, самостоятельный выбор недоступен.")
	}
	if err := dp.deps.Users.Upsert(ctx, from.UserID, role); err != nil {
		return err
	}
	return dp.send(ctx, from, "Роль сохранена. Откройте /menu.")
}

func (dp *Dispatcher) subscribe(ctx context.Context, from Sender, kind string) error {
	if err := dp.deps.Subs.Add(ctx, from.UserID, from.ChatID, kind); err != nil {
		return err
	}
	return dp.send(ctx, from, "Подписка оформлена.")
}

func (dp *Dispatcher) unsubscribe(ctx context.Context, from Sender, kind string) error {
	err := dp.deps.Subs.Remove(ctx, from.UserID, kind)
	if errors.Is(err, domain.ErrNotFound) {
		return dp.send(ctx, from, "Подписки не было.")
	}
	if err != nil {
		return err
	}
	return dp.send(ctx, from, "Подписка отменена.")
}

// send answers into the sender's chat.
func (dp *Dispatcher) send(ctx context.Context, from Sender, text string, rows ...domain.ButtonRow) error {
	_, err := dp.deps.Messenger.Send(ctx, from.reply(), text, rows...)
	return err
}

// notify delivers a secondary message directly to a user. Failures are
// logged and swallowed; the primary mutation already happened.
func (dp *Dispatcher) notify(ctx context.Context, userID int64, text string) {
	_, err := dp.deps.Messenger.Send(ctx, domain.ToUser(userID), text)
	if err != nil {
		dp.log.Warn("notification dropped",
			slog.String("event", "notify.fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func cancelRow() domain.ButtonRow {
	return domain.ButtonRow{{Text: "Отмена ❌", Action: keyCancel}}
}

func rolePickerRows() []domain.ButtonRow {
	rows := make([]domain.ButtonRow, 0, len(domain.GrantableRoles))
	for _, r := range domain.GrantableRoles {
		rows = append(rows, domain.ButtonRow{{
			Text:   roleTitle(r),
			Action: keyRolePick,
			Data:   string(r),
		}})
	}
	return rows
}

func roleTitle(r domain.Role) string {
	switch r {
	case domain.RoleAdmin:
		return "Администратор"
	case domain.RoleDean:
		return "Представитель деканата"
	case domain.RoleStudent:
		return "Студент"
	case domain.RoleApplicant:
		return "Абитуриент"
	case domain.RoleSMM:
		return "SMM"
	case domain.RoleHeadDormitory:
		return "Комендант общежития"
	default:
		return string(r)
	}
}

func mustID(data map[string]string, key string) int64 {
	id, _ := strconv.ParseInt(data[key], 10, 64)
	return id
}
