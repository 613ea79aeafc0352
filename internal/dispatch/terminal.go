package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flows"
)

// finish runs the terminal action of a completed dialog.
func (dp *Dispatcher) finish(ctx context.Context, from Sender, flowName string, data map[string]string) error {
	switch flowName {
	case flows.CertificateRequest:
		count, _ := strconv.Atoi(data[flows.KeyCount])
		id, err := dp.deps.Certificates.Create(ctx, domain.CertificateRequest{
			UserID:    from.UserID,
			Username:  from.Username,
			FullName:  data[flows.KeyFullName],
			GroupName: data[flows.KeyGroup],
			Count:     count,
		})
		if err != nil {
			return err
		}
		return dp.send(ctx, from, fmt.Sprintf("Заявка №%d принята. О готовности справок сообщим.", id))

	case flows.Complaint:
		_, err := dp.deps.Complaints.Create(ctx, domain.Complaint{
			UserID:      from.UserID,
			ChatID:      from.ChatID,
			Username:    from.Username,
			Description: data[flows.KeyDescription],
			Room:        data[flows.KeyRoom],
		})
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Жалоба зарегистрирована, спасибо.")

	case flows.PassRequest:
		_, err := dp.deps.Passes.Create(ctx, domain.PassRequest{
			UserID:    from.UserID,
			ChatID:    from.ChatID,
			Username:  from.Username,
			GroupName: data[flows.KeyGroup],
			Birthday:  data[flows.KeyBirthday],
			Reason:    data[flows.KeyReason],
		})
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Заявка на пропуск принята.")

	case flows.RoleAssign:
		return dp.stageRoleChange(ctx, from, modeAssign, data)

	case flows.RoleRemove:
		return dp.stageRoleChange(ctx, from, modeRemove, data)

	case flows.BlacklistAdd:
		target := mustID(data, flows.KeyTargetID)
		reason := data[flows.KeyReason]
		if err := dp.deps.Blacklist.Add(ctx, target, reason); err != nil {
			return err
		}
		dp.notify(ctx, target, "Вам ограничен доступ к заявкам бота. Причина: "+reason)
		return dp.send(ctx, from, fmt.Sprintf("Пользователь %d добавлен в чёрный список.", target))

	case flows.BlacklistRemove:
		target := mustID(data, flows.KeyTargetID)
		err := dp.deps.Blacklist.Remove(ctx, target)
		if errors.Is(err, domain.ErrNotFound) {
			return dp.send(ctx, from, "Пользователь уже разблокирован.")
		}
		if err != nil {
			return err
		}
		dp.notify(ctx, target, "Доступ к заявкам бота восстановлен.")
		return dp.send(ctx, from, fmt.Sprintf("Пользователь %d разблокирован.", target))

	case flows.UnbanSubmit:
		_, err := dp.deps.Unbans.Create(ctx, domain.UnbanRequest{
			UserID:      from.UserID,
			ChatID:      from.ChatID,
			Username:    from.Username,
			Description: data[flows.KeyDescription],
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return dp.send(ctx, from, "У вас уже есть заявка на рассмотрении.")
		}
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Заявка на снятие блокировки отправлена.")

	case flows.UnbanReject:
		return dp.rejectUnban(ctx, from, mustID(data, flows.KeyRequestID), data[flows.KeyNotes])

	case flows.NewsCreate:
		_, err := dp.deps.News.Create(ctx, data[flows.KeyTitle], data[flows.KeyDescription])
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Новость опубликована.")

	case flows.NewsEdit:
		err := dp.deps.News.Update(ctx, mustID(data, flows.KeyNewsID),
			data[flows.KeyTitle], data[flows.KeyDescription])
		if errors.Is(err, domain.ErrNotFound) {
			return dp.send(ctx, from, "Новость уже удалена.")
		}
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Новость обновлена.")

	case flows.EventCreate:
		_, err := dp.deps.Events.Create(ctx, domain.Event{
			Title:       data[flows.KeyTitle],
			Description: data[flows.KeyDescription],
			EventDate:   data[flows.KeyEventDate],
			Location:    data[flows.KeyLocation],
		})
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Мероприятие добавлено.")

	case flows.EventEdit:
		err := dp.deps.Events.Update(ctx, domain.Event{
			ID:          mustID(data, flows.KeyEventID),
			Title:       data[flows.KeyTitle],
			Description: data[flows.KeyDescription],
			EventDate:   data[flows.KeyEventDate],
			Location:    data[flows.KeyLocation],
		})
		if errors.Is(err, domain.ErrNotFound) {
			return dp.send(ctx, from, "Мероприятие уже удалено.")
		}
		if err != nil {
			return err
		}
		return dp.send(ctx, from, "Мероприятие обновлено.")
	}
	return fmt.Errorf("completed flow %q has no terminal action", flowName)
}

// stageRoleChange parks a finished role dialog in the confirmation stage.
// The target is first pinged directly; an undeliverable ping is the
// strongest available hint that the id is wrong, so the dialog restarts.
func (dp *Dispatcher) stageRoleChange(ctx context.Context, from Sender, mode string, data map[string]string) error {
	target := mustID(data, flows.KeyTargetID)
	role := domain.Role(data[flows.KeyRole])
	ping := "Администратор готовит для вас роль: " + roleTitle(role) + "."
	if mode == modeRemove {
		role = domain.RoleUser
		ping = "Администратор проверяет вашу роль в боте."
	}

	if _, err := dp.deps.Messenger.Send(ctx, domain.ToUser(target), ping); err != nil {
		dp.log.Warn("target unreachable",
			slog.String("event", "role.ping_fail"),
			slog.Int64("user_id", from.UserID),
			slog.Int64("target_id", target),
			slog.String("err", err.Error()),
		)
		if mode == modeAssign {
			return dp.startFlow(ctx, from, flows.RoleAssign, map[string]string{
				keyMode:       modeAssign,
				flows.KeyRole: data[flows.KeyRole],
			})
		}
		return dp.startFlow(ctx, from, flows.RoleRemove, nil)
	}

	prev := dp.resolveRole(ctx, target)
	if err := dp.deps.Sessions.Begin(from.UserID, confirmStage, "await_confirm"); err != nil {
		return err
	}
	err := dp.deps.Sessions.Advance(from.UserID, "await_confirm", map[string]string{
		keyMode:           mode,
		keyPrevRole:       string(prev),
		flows.KeyRole:     data[flows.KeyRole],
		flows.KeyTargetID: data[flows.KeyTargetID],
	})
	if err != nil {
		return err
	}

	var summary string
	if mode == modeAssign {
		summary = fmt.Sprintf("Выдать роль «%s» пользователю %d?", roleTitle(role), target)
	} else {
		summary = fmt.Sprintf("Снять роль «%s» у пользователя %d?", roleTitle(prev), target)
	}
	return dp.send(ctx, from, summary, confirmRows())
}

func (dp *Dispatcher) confirmRole(ctx context.Context, from Sender) error {
	s, ok := dp.deps.Sessions.Get(from.UserID)
	if !ok || s.Flow != confirmStage {
		return dp.send(ctx, from, msgStaleButton)
	}
	dp.deps.Sessions.End(from.UserID)

	mode := s.Data[keyMode]
	target := mustID(s.Data, flows.KeyTargetID)
	prev := domain.Role(s.Data[keyPrevRole])
	role := domain.Role(s.Data[flows.KeyRole])

	var act saga
	var doneOperator, doneTarget string
	if mode == modeAssign {
		act = dp.grantSaga(target, role, prev)
		doneOperator = fmt.Sprintf("Роль «%s» выдана пользователю %d.", roleTitle(role), target)
		doneTarget = "Вам назначена роль: " + roleTitle(role) + "."
	} else {
		var err error
		act, err = dp.revokeSaga(ctx, target, prev)
		if err != nil {
			return err
		}
		doneOperator = fmt.Sprintf("Роль снята, пользователь %d переведён в обычные пользователи.", target)
		doneTarget = "Ваша роль в боте была снята."
	}

	ok, err := dp.runAction(ctx, from, act)
	if err != nil || !ok {
		return err
	}
	dp.notify(ctx, target, doneTarget)
	return dp.send(ctx, from, doneOperator)
}

func (dp *Dispatcher) denyRole(ctx context.Context, from Sender) error {
	s, ok := dp.deps.Sessions.Get(from.UserID)
	if !ok || s.Flow != confirmStage {
		return dp.send(ctx, from, msgStaleButton)
	}
	dp.deps.Sessions.End(from.UserID)
	if s.Data[keyMode] == modeAssign {
		return dp.startFlow(ctx, from, flows.RoleAssign, map[string]string{
			keyMode:       modeAssign,
			flows.KeyRole: s.Data[flows.KeyRole],
		})
	}
	return dp.startFlow(ctx, from, flows.RoleRemove, map[string]string{keyMode: modeRemove})
}

func (dp *Dispatcher) grantSaga(target int64, role, prev domain.Role) saga {
	var steps []sagaStep
	switch role {
	case domain.RoleAdmin:
		steps = append(steps, sagaStep{
			name:       "add_admin",
			apply:      func(ctx context.Context) error { return dp.deps.Staff.AddAdmin(ctx, target) },
			compensate: func(ctx context.Context) error { return dp.deps.Staff.RemoveAdmin(ctx, target) },
		})
	case domain.RoleDean:
		steps = append(steps, sagaStep{
			name:       "add_dean_rep",
			apply:      func(ctx context.Context) error { return dp.deps.Staff.AddDeanRep(ctx, target) },
			compensate: func(ctx context.Context) error { return dp.deps.Staff.RemoveDeanRep(ctx, target) },
		})
	}
	steps = append(steps, sagaStep{
		name:       "set_role",
		apply:      func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, target, role) },
		compensate: func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, target, prev) },
	})
	return saga{name: "role.grant", steps: steps}
}

func (dp *Dispatcher) revokeSaga(ctx context.Context, target int64, prev domain.Role) (saga, error) {
	wasAdmin, err := dp.deps.Staff.IsAdmin(ctx, target)
	if err != nil {
		return saga{}, err
	}
	wasDean, err := dp.deps.Staff.IsDeanRep(ctx, target)
	if err != nil {
		return saga{}, err
	}

	var steps []sagaStep
	if wasAdmin {
		steps = append(steps, sagaStep{
			name:       "remove_admin",
			apply:      func(ctx context.Context) error { return dp.deps.Staff.RemoveAdmin(ctx, target) },
			compensate: func(ctx context.Context) error { return dp.deps.Staff.AddAdmin(ctx, target) },
		})
	}
	if wasDean {
		steps = append(steps, sagaStep{
			name:       "remove_dean_rep",
			apply:      func(ctx context.Context) error { return dp.deps.Staff.RemoveDeanRep(ctx, target) },
			compensate: func(ctx context.Context) error { return dp.deps.Staff.AddDeanRep(ctx, target) },
		})
	}
	steps = append(steps, sagaStep{
		name:       "set_role",
		apply:      func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, target, domain.RoleUser) },
		compensate: func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, target, prev) },
	})
	return saga{name: "role.revoke", steps: steps}, nil
}

// runAction executes a saga. A partial failure is already fully logged by
// the saga itself; the operator gets the generic message and the caller is
// told to skip its success path.
func (dp *Dispatcher) runAction(ctx context.Context, from Sender, act saga) (bool, error) {
	err := act.run(ctx)
	if err == nil {
		return true, nil
	}
	var partial *domain.PartialMutationError
	if errors.As(err, &partial) {
		return false, dp.send(ctx, from, msgActionFailed)
	}
	return false, err
}

func (dp *Dispatcher) resolveRole(ctx context.Context, userID int64) domain.Role {
	u, err := dp.deps.Users.Get(ctx, userID)
	if err != nil {
		return domain.RoleUser
	}
	return u.Role
}

func confirmRows() domain.ButtonRow {
	return domain.ButtonRow{
		{Text: "Подтвердить ✅", Action: keyRoleConfirm},
		{Text: "Другой ID 🔁", Action: keyRoleDeny},
		{Text: "Отмена ❌", Action: keyCancel},
	}
}
