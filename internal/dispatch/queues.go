package dispatch

import (
	"context"
	"fmt"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/queue"
)

const dateLayout = "02.01.2006 15:04"

// QueueDefinitions binds every moderation queue to its loader, item
// formatter and review buttons. Pass the result to queue.NewNavigator.
func QueueDefinitions(deps Deps) []queue.Definition {
	return []queue.Definition{
		{
			Kind:  domain.QueueDean,
			Empty: "Заявок в деканат нет.",
			Load: func(ctx context.Context) ([]queue.Item, error) {
				apps, err := deps.DeanApps.List(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]queue.Item, 0, len(apps))
				for _, a := range apps {
					items = append(items, queue.Item{
						ID: a.UserID,
						Text: fmt.Sprintf(
							"Заявка на представителя деканата\nПользователь: @%s (%d)\nПодана: %s",
							a.Username, a.UserID, a.DateCreated.Format(dateLayout)),
						Actions: reviewRows(domain.QueueDean, a.UserID, "Одобрить ✅", "Отклонить ❌"),
					})
				}
				return items, nil
			},
		},
		{
			Kind:  domain.QueueCertificate,
			Empty: "Заявок на справки нет.",
			Load: func(ctx context.Context) ([]queue.Item, error) {
				reqs, err := deps.Certificates.List(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]queue.Item, 0, len(reqs))
				for _, r := range reqs {
					items = append(items, queue.Item{
						ID: r.ID,
						Text: fmt.Sprintf(
							"Справка об обучении №%d\nФИО: %s\nГруппа: %s\nКоличество: %d\nОт: @%s\nПодана: %s",
							r.ID, r.FullName, r.GroupName, r.Count, r.Username,
							r.DateCreated.Format(dateLayout)),
						Actions: reviewRows(domain.QueueCertificate, r.ID, "Готово ✅", "Отклонить ❌"),
					})
				}
				return items, nil
			},
		},
		{
			Kind:  domain.QueueComplaint,
			Empty: "Жалоб нет.",
			Load: func(ctx context.Context) ([]queue.Item, error) {
				list, err := deps.Complaints.List(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]queue.Item, 0, len(list))
				for _, c := range list {
					items = append(items, queue.Item{
						ID: c.ID,
						Text: fmt.Sprintf(
							"Жалоба №%d\nКомната: %s\nОт: @%s\nПодана: %s\n\n%s",
							c.ID, c.Room, c.Username, c.DateCreated.Format(dateLayout), c.Description),
						Actions: []domain.ButtonRow{{
							{Text: "Решено ✅", Action: keyApprove, Data: reviewData(domain.QueueComplaint, c.ID)},
						}},
					})
				}
				return items, nil
			},
		},
		{
			Kind:  domain.QueuePass,
			Empty: "Заявок на пропуск нет.",
			Load: func(ctx context.Context) ([]queue.Item, error) {
				reqs, err := deps.Passes.List(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]queue.Item, 0, len(reqs))
				for _, p := range reqs {
					items = append(items, queue.Item{
						ID: p.ID,
						Text: fmt.Sprintf(
							"Пропуск №%d\nГруппа: %s\nДата рождения: %s\nПричина: %s\nОт: @%s\nПодана: %s",
							p.ID, p.GroupName, p.Birthday, p.Reason, p.Username,
							p.DateCreated.Format(dateLayout)),
						Actions: reviewRows(domain.QueuePass, p.ID, "Оформить ✅", "Отклонить ❌"),
					})
				}
				return items, nil
			},
		},
		{
			Kind:  domain.QueueUnban,
			Empty: "Заявок на разблокировку нет.",
			Load: func(ctx context.Context) ([]queue.Item, error) {
				reqs, err := deps.Unbans.ListPending(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]queue.Item, 0, len(reqs))
				for _, r := range reqs {
					items = append(items, queue.Item{
						ID: r.ID,
						Text: fmt.Sprintf(
							"Снятие блокировки №%d\nПользователь: @%s (%d)\nПодана: %s\n\n%s",
							r.ID, r.Username, r.UserID, r.Date.Format(dateLayout), r.Description),
						Actions: reviewRows(domain.QueueUnban, r.ID, "Снять блокировку ✅", "Отказать ❌"),
					})
				}
				return items, nil
			},
		},
	}
}

func reviewRows(kind domain.QueueKind, id int64, approveText, rejectText string) []domain.ButtonRow {
	data := reviewData(kind, id)
	return []domain.ButtonRow{{
		{Text: approveText, Action: keyApprove, Data: data},
		{Text: rejectText, Action: keyReject, Data: data},
	}}
}
