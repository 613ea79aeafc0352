// Package flows declares every dialog the bot can run. The definitions are
// purely declarative; the dispatcher owns what happens when a flow completes.
package flows

import (
	"context"
	"strconv"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flow"
)

// Flow names. Button payloads and completed-flow routing key off these.
const (
	CertificateRequest = "certificate-request"
	Complaint          = "complaint"
	PassRequest        = "pass-request"
	RoleAssign         = "role-assign"
	RoleRemove         = "role-remove"
	BlacklistAdd       = "blacklist-add"
	BlacklistRemove    = "blacklist-remove"
	UnbanSubmit        = "unban-submit"
	UnbanReject        = "unban-reject"
	NewsCreate         = "news-create"
	NewsEdit           = "news-edit"
	EventCreate        = "event-create"
	EventEdit          = "event-edit"
)

// Data keys under which answers and seeds are collected.
const (
	KeyFullName    = "full_name"
	KeyGroup       = "group"
	KeyCount       = "count"
	KeyRoom        = "number_room"
	KeyDescription = "description"
	KeyBirthday    = "birthday"
	KeyReason      = "reason"
	KeyTargetID    = "target_id"
	KeyRole        = "role"
	KeyRequestID   = "request_id"
	KeyNewsID      = "news_id"
	KeyEventID     = "event_id"
	KeyTitle       = "title"
	KeyEventDate   = "event_date"
	KeyLocation    = "location"
	KeyNotes       = "notes"
)

// Deps are the store lookups used by in-flow existence checks.
type Deps struct {
	UserExists  func(ctx context.Context, userID int64) (bool, error)
	IsBarred    func(ctx context.Context, userID int64) (bool, error)
	NewsExists  func(ctx context.Context, id int64) (bool, error)
	EventExists func(ctx context.Context, id int64) (bool, error)
}

// All returns the complete flow set.
func All(d Deps) []flow.Flow {
	return []flow.Flow{
		{
			Name: CertificateRequest,
			Steps: []flow.Step{
				{Name: "await_name", Key: KeyFullName, Prompt: "Введите ваше ФИО:", Validate: flow.NonEmpty("укажите ФИО")},
				{Name: "await_group", Key: KeyGroup, Prompt: "Введите вашу группу:", Validate: flow.NonEmpty("укажите группу")},
				{Name: "await_count", Key: KeyCount, Prompt: "Сколько справок нужно? (от 1 до 5)", Validate: flow.IntInRange(1, 5)},
			},
		},
		{
			Name: Complaint,
			Steps: []flow.Step{
				{Name: "await_room", Key: KeyRoom, Prompt: "Укажите номер комнаты:", Validate: flow.NonEmpty("укажите номер комнаты")},
				{Name: "await_text", Key: KeyDescription, Prompt: "Опишите проблему:", Validate: flow.NonEmpty("опишите проблему")},
			},
		},
		{
			Name: PassRequest,
			Steps: []flow.Step{
				{Name: "await_group", Key: KeyGroup, Prompt: "Введите вашу группу:", Validate: flow.NonEmpty("укажите группу")},
				{Name: "await_birthday", Key: KeyBirthday, Prompt: "Введите дату рождения (ДД.ММ.ГГГГ):", Validate: flow.Date()},
				{Name: "await_reason", Key: KeyReason, Prompt: "Укажите причину оформления пропуска:", Validate: flow.NonEmpty("укажите причину")},
			},
		},
		{
			Name: RoleAssign,
			Steps: []flow.Step{
				{
					Name: "await_target", Key: KeyTargetID,
					Prompt:   "Введите ID пользователя, которому выдать роль:",
					Validate: flow.PositiveInt(),
					Check:    userCheck(d.UserExists, "пользователь не найден"),
				},
			},
		},
		{
			Name: RoleRemove,
			Steps: []flow.Step{
				{
					Name: "await_target", Key: KeyTargetID,
					Prompt:   "Введите ID пользователя, у которого снять роль:",
					Validate: flow.PositiveInt(),
					Check:    userCheck(d.UserExists, "пользователь не найден"),
				},
			},
		},
		{
			Name: BlacklistAdd,
			Steps: []flow.Step{
				{
					Name: "await_target", Key: KeyTargetID,
					Prompt:   "Введите ID пользователя для блокировки:",
					Validate: flow.PositiveInt(),
					Check:    userCheck(d.UserExists, "пользователь не найден"),
				},
				{Name: "await_reason", Key: KeyReason, Prompt: "Укажите причину блокировки:", Validate: flow.NonEmpty("укажите причину")},
			},
		},
		{
			Name: BlacklistRemove,
			Steps: []flow.Step{
				{
					Name: "await_target", Key: KeyTargetID,
					Prompt:   "Введите ID пользователя для разблокировки:",
					Validate: flow.PositiveInt(),
					Check:    barredCheck(d.IsBarred),
				},
			},
		},
		{
			Name: UnbanSubmit,
			Steps: []flow.Step{
				{Name: "await_text", Key: KeyDescription, Prompt: "Опишите, почему блокировку стоит снять:", Validate: flow.NonEmpty("опишите причину")},
			},
		},
		{
			Name: UnbanReject,
			Steps: []flow.Step{
				{Name: "await_notes", Key: KeyNotes, Prompt: "Укажите причину отказа:", Validate: flow.NonEmpty("укажите причину отказа")},
			},
		},
		{
			Name: NewsCreate,
			Steps: []flow.Step{
				{Name: "await_title", Key: KeyTitle, Prompt: "Введите заголовок новости:", Validate: flow.NonEmpty("укажите заголовок")},
				{Name: "await_text", Key: KeyDescription, Prompt: "Введите текст новости:", Validate: flow.NonEmpty("укажите текст")},
			},
		},
		{
			Name: NewsEdit,
			Steps: []flow.Step{
				{
					Name: "await_id", Key: KeyNewsID,
					Prompt:   "Введите ID новости:",
					Validate: flow.PositiveInt(),
					Check:    recordCheck(d.NewsExists, "новость не найдена"),
				},
				{Name: "await_title", Key: KeyTitle, Prompt: "Введите новый заголовок:", Validate: flow.NonEmpty("укажите заголовок")},
				{Name: "await_text", Key: KeyDescription, Prompt: "Введите новый текст:", Validate: flow.NonEmpty("укажите текст")},
			},
		},
		{
			Name: EventCreate,
			Steps: []flow.Step{
				{Name: "await_title", Key: KeyTitle, Prompt: "Введите название мероприятия:", Validate: flow.NonEmpty("укажите название")},
				{Name: "await_text", Key: KeyDescription, Prompt: "Введите описание мероприятия:", Validate: flow.NonEmpty("укажите описание")},
				{Name: "await_date", Key: KeyEventDate, Prompt: "Введите дату (ДД.ММ.ГГГГ):", Validate: flow.Date()},
				{Name: "await_location", Key: KeyLocation, Prompt: "Введите место проведения:", Validate: flow.NonEmpty("укажите место")},
			},
		},
		{
			Name: EventEdit,
			Steps: []flow.Step{
				{
					Name: "await_id", Key: KeyEventID,
					Prompt:   "Введите ID мероприятия:",
					Validate: flow.PositiveInt(),
					Check:    recordCheck(d.EventExists, "мероприятие не найдено"),
				},
				{Name: "await_title", Key: KeyTitle, Prompt: "Введите новое название:", Validate: flow.NonEmpty("укажите название")},
				{Name: "await_text", Key: KeyDescription, Prompt: "Введите новое описание:", Validate: flow.NonEmpty("укажите описание")},
				{Name: "await_date", Key: KeyEventDate, Prompt: "Введите новую дату (ДД.ММ.ГГГГ):", Validate: flow.Date()},
				{Name: "await_location", Key: KeyLocation, Prompt: "Введите новое место проведения:", Validate: flow.NonEmpty("укажите место")},
			},
		},
	}
}

func userCheck(exists func(context.Context, int64) (bool, error), hint string) func(context.Context, string) error {
	return func(ctx context.Context, value string) error {
		if exists == nil {
			return nil
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		ok, err := exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ValidationOutOfRange, hint)
		}
		return nil
	}
}

func barredCheck(isBarred func(context.Context, int64) (bool, error)) func(context.Context, string) error {
	return func(ctx context.Context, value string) error {
		if isBarred == nil {
			return nil
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		barred, err := isBarred(ctx, id)
		if err != nil {
			return err
		}
		if !barred {
			return domain.Invalid(domain.ValidationOutOfRange, "пользователь не в чёрном списке")
		}
		return nil
	}
}

func recordCheck(exists func(context.Context, int64) (bool, error), hint string) func(context.Context, string) error {
	return func(ctx context.Context, value string) error {
		if exists == nil {
			return nil
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		ok, err := exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid(domain.ValidationOutOfRange, hint)
		}
		return nil
	}
}
