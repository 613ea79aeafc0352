package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flows"
)

// Start handles /start: greeting plus the role self-select keyboard.
func (dp *Dispatcher) Start(ctx context.Context, from Sender) error {
	return dp.send(ctx, from,
		"Здравствуйте! Я бот учебного заведения.\nКто вы?",
		domain.ButtonRow{
			{Text: "Абитуриент", Action: keySelfSelect, Data: string(domain.RoleApplicant)},
			{Text: "Студент", Action: keySelfSelect, Data: string(domain.RoleStudent)},
		},
	)
}

// Menu handles /menu: the keyboard depends entirely on the caller's role.
func (dp *Dispatcher) Menu(ctx context.Context, from Sender) error {
	role := dp.resolveRole(ctx, from.UserID)
	rows := menuRows(role)
	if len(rows) == 0 {
		return dp.send(ctx, from, "Сначала выберите роль: /start")
	}
	return dp.send(ctx, from, "Меню — "+roleTitle(role), rows...)
}

// FileDeanApplication handles /setd.
func (dp *Dispatcher) FileDeanApplication(ctx context.Context, from Sender) error {
	if dp.resolveRole(ctx, from.UserID) == domain.RoleDean {
		return dp.send(ctx, from, "Вы уже представитель деканата.")
	}
	err := dp.deps.DeanApps.Create(ctx, from.UserID, from.Username)
	if errors.Is(err, domain.ErrDuplicate) {
		return dp.send(ctx, from, "Ваша заявка уже на рассмотрении.")
	}
	if err != nil {
		return err
	}
	return dp.send(ctx, from, "Заявка подана. Администратор рассмотрит её в ближайшее время.")
}

func menuRows(role domain.Role) []domain.ButtonRow {
	switch role {
	case domain.RoleAdmin:
		return []domain.ButtonRow{
			{openQueueBtn("Заявки в деканат 📋", domain.QueueDean)},
			{{Text: "Выдать роль 🎓", Action: keyRoleMenu}},
			{startFlowBtn("Снять роль 🚫", flows.RoleRemove)},
			{
				startFlowBtn("В чёрный список ⛔", flows.BlacklistAdd),
				startFlowBtn("Из чёрного списка ✅", flows.BlacklistRemove),
			},
			{openQueueBtn("Заявки на разблокировку 📨", domain.QueueUnban)},
			{
				startFlowBtn("Изменить новость ✏️", flows.NewsEdit),
				startFlowBtn("Изменить мероприятие ✏️", flows.EventEdit),
			},
		}
	case domain.RoleDean:
		return []domain.ButtonRow{
			{openQueueBtn("Заявки на справки 📋", domain.QueueCertificate)},
			{openQueueBtn("Заявки на пропуск 🪪", domain.QueuePass)},
		}
	case domain.RoleStudent:
		return []domain.ButtonRow{
			{startFlowBtn("Заказать справку 📄", flows.CertificateRequest)},
			{startFlowBtn("Оформить пропуск 🪪", flows.PassRequest)},
			{startFlowBtn("Пожаловаться на общежитие 📣", flows.Complaint)},
			{
				subscribeBtn("Новости университета 🔔", domain.SubscriptionUniversity),
				unsubscribeBtn("🔕", domain.SubscriptionUniversity),
			},
			{
				subscribeBtn("Новости общежития 🔔", domain.SubscriptionDormitory),
				unsubscribeBtn("🔕", domain.SubscriptionDormitory),
			},
		}
	case domain.RoleApplicant:
		return []domain.ButtonRow{
			{{Text: "Об университете 🏛", Action: keyInfo, Data: TopicAbout}},
			{{Text: "Мероприятия 📅", Action: keyInfo, Data: TopicEvents}},
			{{Text: "Новости 📰", Action: keyInfo, Data: TopicNews}},
			{startFlowBtn("Снять блокировку 🙏", flows.UnbanSubmit)},
		}
	case domain.RoleSMM:
		return []domain.ButtonRow{
			{
				startFlowBtn("Новость ➕", flows.NewsCreate),
				startFlowBtn("Новость ✏️", flows.NewsEdit),
			},
			{
				startFlowBtn("Мероприятие ➕", flows.EventCreate),
				startFlowBtn("Мероприятие ✏️", flows.EventEdit),
			},
		}
	case domain.RoleHeadDormitory:
		return []domain.ButtonRow{
			{openQueueBtn("Жалобы 📣", domain.QueueComplaint)},
			{openQueueBtn("Заявки на пропуск 🪪", domain.QueuePass)},
			{{Text: "Рассылки 📬", Action: keyInfo, Data: TopicMailing}},
		}
	}
	return nil
}

func openQueueBtn(text string, kind domain.QueueKind) domain.Button {
	return domain.Button{Text: text, Action: keyQueueOpen, Data: string(kind)}
}

func startFlowBtn(text, flow string) domain.Button {
	return domain.Button{Text: text, Action: keyFlowStart, Data: flow}
}

func subscribeBtn(text, kind string) domain.Button {
	return domain.Button{Text: text, Action: keySubscribe, Data: kind}
}

func unsubscribeBtn(text, kind string) domain.Button {
	return domain.Button{Text: fmt.Sprintf("Отписаться %s", text), Action: keyUnsubscribe, Data: kind}
}
