package dispatch

import (
	"context"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flow"
	"github.com/campusgate/campusbot/internal/queue"
	"github.com/campusgate/campusbot/internal/session"
)

// Store contracts consumed by the dispatcher. Declared here, on the consumer
// side, so tests can substitute in-memory fakes per concern.

type UserDirectory interface {
	Upsert(ctx context.Context, userID int64, role domain.Role) error
	Get(ctx context.Context, userID int64) (domain.User, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}

type StaffDirectory interface {
	AddAdmin(ctx context.Context, userID int64) error
	RemoveAdmin(ctx context.Context, userID int64) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AddDeanRep(ctx context.Context, userID int64) error
	RemoveDeanRep(ctx context.Context, userID int64) error
	IsDeanRep(ctx context.Context, userID int64) (bool, error)
}

type DeanApplications interface {
	Create(ctx context.Context, userID int64, username string) error
	Get(ctx context.Context, userID int64) (domain.DeanApplication, error)
	List(ctx context.Context) ([]domain.DeanApplication, error)
	Delete(ctx context.Context, userID int64) error
}

type CertificateRequests interface {
	Create(ctx context.Context, r domain.CertificateRequest) (int64, error)
	Get(ctx context.Context, id int64) (domain.CertificateRequest, error)
	List(ctx context.Context) ([]domain.CertificateRequest, error)
	Delete(ctx context.Context, id int64) error
}

type Complaints interface {
	Create(ctx context.Context, c domain.Complaint) (int64, error)
	Get(ctx context.Context, id int64) (domain.Complaint, error)
	List(ctx context.Context) ([]domain.Complaint, error)
	Delete(ctx context.Context, id int64) error
}

type PassRequests interface {
	Create(ctx context.Context, p domain.PassRequest) (int64, error)
	Get(ctx context.Context, id int64) (domain.PassRequest, error)
	List(ctx context.Context) ([]domain.PassRequest, error)
	Delete(ctx context.Context, id int64) error
}

type UnbanRequests interface {
	Create(ctx context.Context, r domain.UnbanRequest) (int64, error)
	Get(ctx context.Context, id int64) (domain.UnbanRequest, error)
	ListPending(ctx context.Context) ([]domain.UnbanRequest, error)
	Review(ctx context.Context, id int64, status string, reviewedBy int64, notes string) error
	Reopen(ctx context.Context, id int64) error
}

type Blacklist interface {
	Add(ctx context.Context, userID int64, reason string) error
	Remove(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (domain.BlacklistEntry, error)
	IsBarred(ctx context.Context, userID int64) (bool, error)
}

type NewsFeed interface {
	Create(ctx context.Context, title, description string) (int64, error)
	Update(ctx context.Context, id int64, title, description string) error
	List(ctx context.Context) ([]domain.News, error)
}

type Events interface {
	Create(ctx context.Context, e domain.Event) (int64, error)
	Update(ctx context.Context, e domain.Event) error
	List(ctx context.Context) ([]domain.Event, error)
}

type Subscriptions interface {
	Add(ctx context.Context, userID, chatID int64, kind string) error
	Remove(ctx context.Context, userID int64, kind string) error
	List(ctx context.Context, kind string) ([]domain.Subscription, error)
}

// Deps wires the dispatcher to the conversation core and the stores.
type Deps struct {
	Engine    *flow.Engine
	Sessions  session.Store
	Navigator *queue.Navigator
	Messenger domain.Messenger

	Users        UserDirectory
	Staff        StaffDirectory
	DeanApps     DeanApplications
	Certificates CertificateRequests
	Complaints   Complaints
	Passes       PassRequests
	Unbans       UnbanRequests
	Blacklist    Blacklist
	News         NewsFeed
	Events       Events
	Subs         Subscriptions

	// About is the institution description shown to applicants.
	About string
}
