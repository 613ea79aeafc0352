// Package dispatch turns parsed updates into store mutations and outbound
// messages. Callback payloads are decoded into a typed value exactly once,
// at the boundary; everything past Parse works with concrete types.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/queue"
)

// Callback keys. The wire form is the telebot callback unique plus a data
// string; Parse maps each pair onto one Payload variant.
const (
	keyQueueOpen   = "q.open"
	keyFlowStart   = "flow.start"
	keyRoleMenu    = "role.menu"
	keyRolePick    = "role.pick"
	keyRoleConfirm = "role.confirm"
	keyRoleDeny    = "role.deny"
	keyCancel      = "cancel"
	keyApprove     = "rev.ok"
	keyReject      = "rev.no"
	keySelfSelect  = "start.role"
	keySubscribe   = "sub.on"
	keyUnsubscribe = "sub.off"
	keyInfo        = "info"
)

// Payload is the decoded form of one callback press.
type Payload interface{ isPayload() }

// OpenQueue starts browsing a moderation queue.
type OpenQueue struct{ Kind domain.QueueKind }

// NextQueue advances the queue cursor.
type NextQueue struct{ Kind domain.QueueKind }

// StopQueue ends queue browsing.
type StopQueue struct{ Kind domain.QueueKind }

// StartFlow launches a dialog flow.
type StartFlow struct{ Flow string }

// ShowRolePicker renders the grantable-role keyboard.
type ShowRolePicker struct{}

// PickRole launches the grant dialog for the chosen role.
type PickRole struct{ Role domain.Role }

// ConfirmRole applies a pending role grant or revocation.
type ConfirmRole struct{}

// DenyRole rejects the chosen target and asks for another id.
type DenyRole struct{}

// CancelFlow abandons the active dialog.
type CancelFlow struct{}

// Approve accepts the queue item (resolve, for complaints).
type Approve struct {
	Kind domain.QueueKind
	ID   int64
}

// Reject declines the queue item.
type Reject struct {
	Kind domain.QueueKind
	ID   int64
}

// SelfSelect is the /start role choice.
type SelfSelect struct{ Role domain.Role }

// Subscribe adds the user to a mailing kind.
type Subscribe struct{ Kind string }

// Unsubscribe removes the user from a mailing kind.
type Unsubscribe struct{ Kind string }

// ShowInfo renders a read-only info page.
type ShowInfo struct{ Topic string }

// Info topics.
const (
	TopicAbout   = "about"
	TopicEvents  = "events"
	TopicNews    = "news"
	TopicMailing = "mailing"
)

func (OpenQueue) isPayload()      {}
func (NextQueue) isPayload()      {}
func (StopQueue) isPayload()      {}
func (StartFlow) isPayload()      {}
func (ShowRolePicker) isPayload() {}
func (PickRole) isPayload()       {}
func (ConfirmRole) isPayload()    {}
func (DenyRole) isPayload()       {}
func (CancelFlow) isPayload()     {}
func (Approve) isPayload()        {}
func (Reject) isPayload()         {}
func (SelfSelect) isPayload()     {}
func (Subscribe) isPayload()      {}
func (Unsubscribe) isPayload()    {}
func (ShowInfo) isPayload()       {}

// Parse decodes a callback key and data string into a Payload. Unknown keys
// and malformed data are errors; nothing downstream re-parses the data.
func Parse(key, data string) (Payload, error) {
	switch key {
	case keyQueueOpen:
		kind, err := parseKind(data)
		if err != nil {
			return nil, err
		}
		return OpenQueue{Kind: kind}, nil
	case queue.ActionNext:
		kind, err := parseKind(data)
		if err != nil {
			return nil, err
		}
		return NextQueue{Kind: kind}, nil
	case queue.ActionStop:
		kind, err := parseKind(data)
		if err != nil {
			return nil, err
		}
		return StopQueue{Kind: kind}, nil
	case keyFlowStart:
		if data == "" {
			return nil, fmt.Errorf("flow.start without flow name")
		}
		return StartFlow{Flow: data}, nil
	case keyRoleMenu:
		return ShowRolePicker{}, nil
	case keyRolePick:
		role, ok := domain.ParseRole(data)
		if !ok {
			return nil, fmt.Errorf("role.pick with unknown role %q", data)
		}
		return PickRole{Role: role}, nil
	case keyRoleConfirm:
		return ConfirmRole{}, nil
	case keyRoleDeny:
		return DenyRole{}, nil
	case keyCancel:
		return CancelFlow{}, nil
	case keyApprove:
		kind, id, err := parseReview(data)
		if err != nil {
			return nil, err
		}
		return Approve{Kind: kind, ID: id}, nil
	case keyReject:
		kind, id, err := parseReview(data)
		if err != nil {
			return nil, err
		}
		return Reject{Kind: kind, ID: id}, nil
	case keySelfSelect:
		role, ok := domain.ParseRole(data)
		if !ok || (role != domain.RoleApplicant && role != domain.RoleStudent) {
			return nil, fmt.Errorf("start.role with non-selectable role %q", data)
		}
		return SelfSelect{Role: role}, nil
	case keySubscribe:
		if data != domain.SubscriptionUniversity && data != domain.SubscriptionDormitory {
			return nil, fmt.Errorf("sub.on with unknown kind %q", data)
		}
		return Subscribe{Kind: data}, nil
	case keyUnsubscribe:
		if data != domain.SubscriptionUniversity && data != domain.SubscriptionDormitory {
			return nil, fmt.Errorf("sub.off with unknown kind %q", data)
		}
		return Unsubscribe{Kind: data}, nil
	case keyInfo:
		switch data {
		case TopicAbout, TopicEvents, TopicNews, TopicMailing:
			return ShowInfo{Topic: data}, nil
		}
		return nil, fmt.Errorf("info with unknown topic %q", data)
	}
	return nil, fmt.Errorf("unknown callback key %q", key)
}

func parseKind(data string) (domain.QueueKind, error) {
	kind, ok := domain.ParseQueueKind(data)
	if !ok {
		return "", fmt.Errorf("unknown queue kind %q", data)
	}
	return kind, nil
}

// parseReview splits "<kind>:<id>". For the dean queue the id is the
// applicant's user id; everywhere else it is the record id.
func parseReview(data string) (domain.QueueKind, int64, error) {
	kindStr, idStr, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, fmt.Errorf("review payload %q: missing id", data)
	}
	kind, err := parseKind(kindStr)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("review payload %q: bad id", data)
	}
	return kind, id, nil
}

func reviewData(kind domain.QueueKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}
