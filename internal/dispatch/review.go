package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flows"
)

const msgAlreadyReviewed = "Заявка уже обработана другим модератором."

// review applies an approve or reject press on a queue item, then redraws
// the queue for the operator. Items a colleague reviewed first show up as
// already handled.
func (dp *Dispatcher) review(ctx context.Context, from Sender, kind domain.QueueKind, id int64, approve bool) error {
	var (
		act      saga
		notifyID int64
		notifyTx string
		doneText string
		err      error
	)

	switch kind {
	case domain.QueueDean:
		act, notifyID, err = dp.deanReviewSaga(ctx, id, approve)
		if approve {
			notifyTx = "Ваша заявка на представителя деканата одобрена."
			doneText = "Заявка одобрена."
		} else {
			notifyTx = "Ваша заявка на представителя деканата отклонена."
			doneText = "Заявка отклонена."
		}

	case domain.QueueCertificate:
		var r domain.CertificateRequest
		r, err = dp.deps.Certificates.Get(ctx, id)
		if err == nil {
			act = dp.dropRecreateSaga("certificate.review", func(ctx context.Context) error {
				return dp.deps.Certificates.Delete(ctx, id)
			}, func(ctx context.Context) error {
				_, cerr := dp.deps.Certificates.Create(ctx, r)
				return cerr
			})
			notifyID = r.UserID
			if approve {
				notifyTx = fmt.Sprintf("Справки (%d шт.) готовы, заберите их в деканате.", r.Count)
				doneText = "Заявка на справку одобрена."
			} else {
				notifyTx = "Заявка на справку отклонена, уточните данные в деканате."
				doneText = "Заявка на справку отклонена."
			}
		}

	case domain.QueueComplaint:
		if !approve {
			return dp.send(ctx, from, msgStaleButton)
		}
		var c domain.Complaint
		c, err = dp.deps.Complaints.Get(ctx, id)
		if err == nil {
			act = dp.dropRecreateSaga("complaint.resolve", func(ctx context.Context) error {
				return dp.deps.Complaints.Delete(ctx, id)
			}, func(ctx context.Context) error {
				_, cerr := dp.deps.Complaints.Create(ctx, c)
				return cerr
			})
			doneText = "Жалоба закрыта."
		}

	case domain.QueuePass:
		var p domain.PassRequest
		p, err = dp.deps.Passes.Get(ctx, id)
		if err == nil {
			act = dp.dropRecreateSaga("pass.review", func(ctx context.Context) error {
				return dp.deps.Passes.Delete(ctx, id)
			}, func(ctx context.Context) error {
				_, cerr := dp.deps.Passes.Create(ctx, p)
				return cerr
			})
			notifyID = p.UserID
			if approve {
				notifyTx = "Пропуск оформлен, получите его у коменданта."
				doneText = "Заявка на пропуск одобрена."
			} else {
				notifyTx = "В оформлении пропуска отказано."
				doneText = "Заявка на пропуск отклонена."
			}
		}

	case domain.QueueUnban:
		if !approve {
			// Rejection collects review notes first.
			return dp.startFlow(ctx, from, flows.UnbanReject, map[string]string{
				flows.KeyRequestID: reviewIDSeed(id),
			})
		}
		act, notifyID, err = dp.unbanApproveSaga(ctx, from, id)
		notifyTx = "Блокировка снята, заявки бота снова доступны."
		doneText = "Блокировка снята."

	default:
		return fmt.Errorf("review for unknown queue %q", kind)
	}

	if errors.Is(err, domain.ErrNotFound) {
		if serr := dp.send(ctx, from, msgAlreadyReviewed); serr != nil {
			return serr
		}
		return dp.redraw(ctx, from, kind)
	}
	if err != nil {
		return err
	}

	ok, err := dp.runAction(ctx, from, act)
	if err != nil || !ok {
		return err
	}
	if notifyID != 0 && notifyTx != "" {
		dp.notify(ctx, notifyID, notifyTx)
	}
	if serr := dp.send(ctx, from, doneText); serr != nil {
		return serr
	}
	return dp.redraw(ctx, from, kind)
}

// deanReviewSaga builds the saga for a dean application decision. The id is
// the applicant's user id.
func (dp *Dispatcher) deanReviewSaga(ctx context.Context, userID int64, approve bool) (saga, int64, error) {
	app, err := dp.deps.DeanApps.Get(ctx, userID)
	if err != nil {
		return saga{}, 0, err
	}

	steps := []sagaStep{{
		name:  "drop_application",
		apply: func(ctx context.Context) error { return dp.deps.DeanApps.Delete(ctx, userID) },
		compensate: func(ctx context.Context) error {
			return dp.deps.DeanApps.Create(ctx, app.UserID, app.Username)
		},
	}}
	if approve {
		prev := dp.resolveRole(ctx, userID)
		steps = append(steps,
			sagaStep{
				name:       "add_dean_rep",
				apply:      func(ctx context.Context) error { return dp.deps.Staff.AddDeanRep(ctx, userID) },
				compensate: func(ctx context.Context) error { return dp.deps.Staff.RemoveDeanRep(ctx, userID) },
			},
			sagaStep{
				name:       "set_role",
				apply:      func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, userID, domain.RoleDean) },
				compensate: func(ctx context.Context) error { return dp.deps.Users.Upsert(ctx, userID, prev) },
			},
		)
	}
	return saga{name: "dean.review", steps: steps}, app.UserID, nil
}

// unbanApproveSaga closes the plea and lifts the blacklist bar. When the
// user is somehow no longer barred only the status changes.
func (dp *Dispatcher) unbanApproveSaga(ctx context.Context, from Sender, id int64) (saga, int64, error) {
	r, err := dp.deps.Unbans.Get(ctx, id)
	if err != nil {
		return saga{}, 0, err
	}
	if r.Status != domain.UnbanStatusPending {
		return saga{}, 0, domain.ErrNotFound
	}

	steps := []sagaStep{{
		name: "close_plea",
		apply: func(ctx context.Context) error {
			return dp.deps.Unbans.Review(ctx, id, domain.UnbanStatusApproved, from.UserID, "")
		},
		compensate: func(ctx context.Context) error { return dp.deps.Unbans.Reopen(ctx, id) },
	}}

	entry, err := dp.deps.Blacklist.Get(ctx, r.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Bar already lifted elsewhere.
	case err != nil:
		return saga{}, 0, err
	default:
		steps = append(steps, sagaStep{
			name:  "lift_bar",
			apply: func(ctx context.Context) error { return dp.deps.Blacklist.Remove(ctx, r.UserID) },
			compensate: func(ctx context.Context) error {
				return dp.deps.Blacklist.Add(ctx, r.UserID, entry.Reason)
			},
		})
	}
	return saga{name: "unban.approve", steps: steps}, r.UserID, nil
}

// rejectUnban finishes the unban-reject dialog: review notes are in hand.
func (dp *Dispatcher) rejectUnban(ctx context.Context, from Sender, id int64, notes string) error {
	r, err := dp.deps.Unbans.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return dp.send(ctx, from, msgAlreadyReviewed)
	}
	if err != nil {
		return err
	}
	if r.Status != domain.UnbanStatusPending {
		return dp.send(ctx, from, msgAlreadyReviewed)
	}

	act := saga{name: "unban.reject", steps: []sagaStep{{
		name: "close_plea",
		apply: func(ctx context.Context) error {
			return dp.deps.Unbans.Review(ctx, id, domain.UnbanStatusRejected, from.UserID, notes)
		},
		compensate: func(ctx context.Context) error { return dp.deps.Unbans.Reopen(ctx, id) },
	}}}
	ok, err := dp.runAction(ctx, from, act)
	if err != nil || !ok {
		return err
	}
	dp.notify(ctx, r.UserID, "В снятии блокировки отказано. Причина: "+notes)
	return dp.send(ctx, from, "Заявка отклонена.")
}

// dropRecreateSaga is the common one-step shape: delete the reviewed record,
// re-create it if a later step ever fails.
func (dp *Dispatcher) dropRecreateSaga(name string, drop, recreate func(ctx context.Context) error) saga {
	return saga{name: name, steps: []sagaStep{{
		name:       "drop_record",
		apply:      drop,
		compensate: recreate,
	}}}
}

// redraw re-renders the queue after a review so the operator keeps browsing
// without pressing next.
func (dp *Dispatcher) redraw(ctx context.Context, from Sender, kind domain.QueueKind) error {
	v, err := dp.deps.Navigator.Current(ctx, from.ChatID, kind)
	if err != nil {
		return err
	}
	return dp.renderQueue(ctx, from, v)
}

func (dp *Dispatcher) showInfo(ctx context.Context, from Sender, topic string) error {
	switch topic {
	case TopicAbout:
		about := dp.deps.About
		if about == "" {
			about = "Информация об учебном заведении пока не заполнена."
		}
		return dp.send(ctx, from, about)

	case TopicEvents:
		events, err := dp.deps.Events.List(ctx)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return dp.send(ctx, from, "Ближайших мероприятий пока нет.")
		}
		var b strings.Builder
		b.WriteString("Ближайшие мероприятия:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "\n%s — %s, %s\n%s\n", e.Title, e.EventDate, e.Location, e.Description)
		}
		return dp.send(ctx, from, b.String())

	case TopicNews:
		news, err := dp.deps.News.List(ctx)
		if err != nil {
			return err
		}
		if len(news) == 0 {
			return dp.send(ctx, from, "Новостей пока нет.")
		}
		var b strings.Builder
		b.WriteString("Новости:\n")
		for _, n := range news {
			fmt.Fprintf(&b, "\n%s\n%s\n", n.Title, n.Description)
		}
		return dp.send(ctx, from, b.String())

	case TopicMailing:
		uni, err := dp.deps.Subs.List(ctx, domain.SubscriptionUniversity)
		if err != nil {
			return err
		}
		dorm, err := dp.deps.Subs.List(ctx, domain.SubscriptionDormitory)
		if err != nil {
			return err
		}
		return dp.send(ctx, from, fmt.Sprintf(
			"Подписчики рассылок:\nУниверситет: %d\nОбщежитие: %d", len(uni), len(dorm)))
	}
	return fmt.Errorf("unknown info topic %q", topic)
}

func reviewIDSeed(id int64) string {
	return fmt.Sprintf("%d", id)
}
