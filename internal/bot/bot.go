// Package bot assembles the stores, conversation core and Telegram wiring
// into a runnable application.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/campusgate/campusbot/core/config"
	tg "github.com/campusgate/campusbot/core/telegram"
	"github.com/campusgate/campusbot/core/telegram/commands"
	tghelpers "github.com/campusgate/campusbot/core/telegram/helpers"
	"github.com/campusgate/campusbot/core/telegram/router"
	"github.com/campusgate/campusbot/internal/dispatch"
	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flow"
	"github.com/campusgate/campusbot/internal/flows"
	"github.com/campusgate/campusbot/internal/queue"
	"github.com/campusgate/campusbot/internal/session"
	"github.com/campusgate/campusbot/internal/storage"
)

const aboutText = "Наш университет готовит специалистов по инженерным и IT-направлениям.\n" +
	"Приёмная комиссия: ул. Университетская 1, каб. 100.\n" +
	"Подробности и документы: на сайте приёмной комиссии."

// App is the assembled bot, ready to run.
type App struct {
	cfg        *coreconfig.Config
	registry   *tg.Registry
	routes     []tg.Route
	dispatcher *dispatch.Dispatcher
	sessions   *session.MemoryStore
	messenger  *TelebotMessenger
	users      *storage.UserStore
	staff      *storage.StaffStore
}

// New wires stores, flows, queues and the dispatcher over an open database.
func New(cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	messenger := NewMessenger()

	users := storage.NewUserStore(db)
	staff := storage.NewStaffStore(db)
	deanApps := storage.NewDeanApplicationStore(db)
	certs := storage.NewCertificateStore(db)
	complaints := storage.NewComplaintStore(db)
	passes := storage.NewPassStore(db)
	unbans := storage.NewUnbanStore(db)
	blacklist := storage.NewBlacklistStore(db)
	news := storage.NewNewsStore(db)
	events := storage.NewEventStore(db)
	subs := storage.NewSubscriptionStore(db)

	sessions := session.NewMemoryStore(cfg.Session.TTL())

	engine, err := flow.NewEngine(sessions, flows.All(flows.Deps{
		UserExists: users.Exists,
		IsBarred:   blacklist.IsBarred,
		NewsExists: func(ctx context.Context, id int64) (bool, error) {
			_, err := news.Get(ctx, id)
			return existsFromErr(err)
		},
		EventExists: func(ctx context.Context, id int64) (bool, error) {
			_, err := events.Get(ctx, id)
			return existsFromErr(err)
		},
	})...)
	if err != nil {
		return nil, err
	}

	deps := dispatch.Deps{
		Engine:       engine,
		Sessions:     sessions,
		Messenger:    messenger,
		Users:        users,
		Staff:        staff,
		DeanApps:     deanApps,
		Certificates: certs,
		Complaints:   complaints,
		Passes:       passes,
		Unbans:       unbans,
		Blacklist:    blacklist,
		News:         news,
		Events:       events,
		Subs:         subs,
		About:        aboutText,
	}
	nav, err := queue.NewNavigator(dispatch.QueueDefinitions(deps)...)
	if err != nil {
		return nil, err
	}
	deps.Navigator = nav
	dp := dispatch.New(deps)

	registry := tg.NewRegistry()
	registry.RegisterCommand("/start", commands.Command{
		Description: "Начало работы и выбор роли",
		Handler:     teleHandler(dp.Start),
	})
	registry.RegisterCommand("/menu", commands.Command{
		Description: "Главное меню",
		Handler:     teleHandler(dp.Menu),
	})
	registry.RegisterCommand("/setd", commands.Command{
		Description: "Заявка представителя деканата",
		Hidden:      true,
		Handler:     teleHandler(dp.FileDeanApplication),
	})

	routes := router.CommandRoutes(registry)
	routes = append(routes,
		router.TextRoute(&textAdapter{dp: dp}, registry, router.TextOptions{
			UnknownText: func(c tele.Context) error {
				return tghelpers.SendText(c, "Команда не распознана. Откройте /menu.")
			},
		}),
		router.CallbackRoute(&buttonAdapter{dp: dp}),
	)

	return &App{
		cfg:        cfg,
		registry:   registry,
		routes:     routes,
		dispatcher: dp,
		sessions:   sessions,
		messenger:  messenger,
		users:      users,
		staff:      staff,
	}, nil
}

// Run seeds the configured admin and starts the Telegram transport,
// blocking until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.seedAdmin(ctx); err != nil {
		return err
	}
	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:   a.cfg,
		Registry: a.registry,
		Routes:   a.routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.messenger.Bind(rt.Bot)
			go a.sessions.RunSweeper(ctx, a.cfg.Session.SweepInterval())
			return nil
		},
	})
}

// seedAdmin grants the configured admin id its role and membership row, so
// a fresh database starts with a working administrator.
func (a *App) seedAdmin(ctx context.Context) error {
	id := a.cfg.Telegram.AdminID
	if id == 0 {
		return nil
	}
	if err := a.users.Upsert(ctx, id, domain.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin %d: %w", id, err)
	}
	if err := a.staff.AddAdmin(ctx, id); err != nil {
		return fmt.Errorf("seed admin %d: %w", id, err)
	}
	return nil
}

// teleHandler adapts a dispatcher command method to a telebot handler.
func teleHandler(h func(ctx context.Context, from dispatch.Sender) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h(tghelpers.BuildContext(c), senderOf(c))
	}
}

type textAdapter struct{ dp *dispatch.Dispatcher }

func (a *textAdapter) InProgress(userID int64) bool { return a.dp.InProgress(userID) }

func (a *textAdapter) HandleText(c tele.Context) error {
	return a.dp.OnText(tghelpers.BuildContext(c), senderOf(c), c.Text())
}

type buttonAdapter struct{ dp *dispatch.Dispatcher }

func (a *buttonAdapter) HandleButton(c tele.Context, key, payload string) error {
	return a.dp.OnButton(tghelpers.BuildContext(c), senderOf(c), key, payload)
}

func senderOf(c tele.Context) dispatch.Sender {
	s := dispatch.Sender{}
	if u := c.Sender(); u != nil {
		s.UserID = u.ID
		s.Username = u.Username
	}
	if chat := c.Chat(); chat != nil {
		s.ChatID = chat.ID
	}
	return s
}

func existsFromErr(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}
