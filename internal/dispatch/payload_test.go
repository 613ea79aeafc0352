package dispatch

import (
	"reflect"
	"testing"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/queue"
)

func TestParseKnownPayloads(t *testing.T) {
	cases := []struct {
		key  string
		data string
		want Payload
	}{
		{keyQueueOpen, "dean", OpenQueue{Kind: domain.QueueDean}},
		{queue.ActionNext, "certificate", NextQueue{Kind: domain.QueueCertificate}},
		{queue.ActionStop, "pass", StopQueue{Kind: domain.QueuePass}},
		{keyFlowStart, "complaint", StartFlow{Flow: "complaint"}},
		{keyRoleMenu, "", ShowRolePicker{}},
		{keyRolePick, "dean", PickRole{Role: domain.RoleDean}},
		{keyRoleConfirm, "", ConfirmRole{}},
		{keyRoleDeny, "", DenyRole{}},
		{keyCancel, "", CancelFlow{}},
		{keyApprove, "certificate:41", Approve{Kind: domain.QueueCertificate, ID: 41}},
		{keyReject, "unban:7", Reject{Kind: domain.QueueUnban, ID: 7}},
		{keySelfSelect, "student", SelfSelect{Role: domain.RoleStudent}},
		{keySubscribe, "university", Subscribe{Kind: domain.SubscriptionUniversity}},
		{keyUnsubscribe, "dormitory", Unsubscribe{Kind: domain.SubscriptionDormitory}},
		{keyInfo, "about", ShowInfo{Topic: TopicAbout}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.key, tc.data)
		if err != nil {
			t.Fatalf("Parse(%q, %q): %v", tc.key, tc.data, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Parse(%q, %q) = %#v, want %#v", tc.key, tc.data, got, tc.want)
		}
	}
}

func TestParseRejectsMalformedPayloads(t *testing.T) {
	cases := []struct{ key, data string }{
		{"made.up", ""},
		{keyQueueOpen, "laundry"},
		{keyFlowStart, ""},
		{keyRolePick, "czar"},
		{keyApprove, "certificate"},        // missing id
		{keyApprove, "certificate:zero"},   // non-numeric id
		{keyApprove, "certificate:-4"},     // non-positive id
		{keySelfSelect, "admin"},           // not self-selectable
		{keySubscribe, "lottery"},
		{keyInfo, "weather"},
	}
	for _, tc := range cases {
		if _, err := Parse(tc.key, tc.data); err == nil {
			t.Fatalf("Parse(%q, %q) accepted", tc.key, tc.data)
		}
	}
}
