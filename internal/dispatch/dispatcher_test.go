package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusgate/campusbot/internal/domain"
	"github.com/campusgate/campusbot/internal/flow"
	"github.com/campusgate/campusbot/internal/flows"
	"github.com/campusgate/campusbot/internal/queue"
	"github.com/campusgate/campusbot/internal/session"
)

// fakeMessenger records every send and edit. Direct messages to ids in
// unreachable fail, modeling users who never opened the bot.
type fakeMessenger struct {
	sent        []sentMsg
	edits       int
	unreachable map[int64]bool
}

type sentMsg struct {
	to   domain.Recipient
	text string
	rows []domain.ButtonRow
}

func (m *fakeMessenger) Send(_ context.Context, to domain.Recipient, text string, rows ...domain.ButtonRow) (domain.MessageHandle, error) {
	if to.UserID != 0 && m.unreachable[to.UserID] {
		return domain.MessageHandle{}, &domain.DeliveryError{To: to, Err: errors.New("blocked")}
	}
	m.sent = append(m.sent, sentMsg{to: to, text: text, rows: rows})
	return domain.MessageHandle{ChatID: to.ChatID, MessageID: len(m.sent)}, nil
}

func (m *fakeMessenger) Edit(_ context.Context, h domain.MessageHandle, text string, rows ...domain.ButtonRow) error {
	m.edits++
	m.sent = append(m.sent, sentMsg{to: domain.Chat(h.ChatID), text: text, rows: rows})
	return nil
}

func (m *fakeMessenger) Delete(context.Context, domain.MessageHandle) error { return nil }

func (m *fakeMessenger) lastText() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

func (m *fakeMessenger) textsTo(to domain.Recipient) []string {
	var out []string
	for _, s := range m.sent {
		if s.to == to {
			out = append(out, s.text)
		}
	}
	return out
}

type fakeUsers struct{ roles map[int64]domain.Role }

func (f *fakeUsers) Upsert(_ context.Context, id int64, role domain.Role) error {
	f.roles[id] = role
	return nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (domain.User, error) {
	role, ok := f.roles[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return domain.User{ID: id, Role: role}, nil
}

func (f *fakeUsers) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.roles[id]
	return ok, nil
}

type fakeStaff struct {
	admins, deans map[int64]bool
	failAddDean   error
}

func (f *fakeStaff) AddAdmin(_ context.Context, id int64) error    { f.admins[id] = true; return nil }
func (f *fakeStaff) RemoveAdmin(_ context.Context, id int64) error { delete(f.admins, id); return nil }
func (f *fakeStaff) IsAdmin(_ context.Context, id int64) (bool, error) {
	return f.admins[id], nil
}

func (f *fakeStaff) AddDeanRep(_ context.Context, id int64) error {
	if f.failAddDean != nil {
		return f.failAddDean
	}
	f.deans[id] = true
	return nil
}

func (f *fakeStaff) RemoveDeanRep(_ context.Context, id int64) error {
	delete(f.deans, id)
	return nil
}

func (f *fakeStaff) IsDeanRep(_ context.Context, id int64) (bool, error) {
	return f.deans[id], nil
}

type fakeCertificates struct {
	rows       map[int64]domain.CertificateRequest
	nextID     int64
	failCreate error
}

func (f *fakeCertificates) Create(_ context.Context, r domain.CertificateRequest) (int64, error) {
	if f.failCreate != nil {
		return 0, f.failCreate
	}
	f.nextID++
	r.ID = f.nextID
	f.rows[r.ID] = r
	return r.ID, nil
}

func (f *fakeCertificates) Get(_ context.Context, id int64) (domain.CertificateRequest, error) {
	r, ok := f.rows[id]
	if !ok {
		return domain.CertificateRequest{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeCertificates) List(_ context.Context) ([]domain.CertificateRequest, error) {
	var out []domain.CertificateRequest
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeCertificates) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeUnbans struct{ rows map[int64]domain.UnbanRequest }

func (f *fakeUnbans) Create(_ context.Context, r domain.UnbanRequest) (int64, error) {
	id := int64(len(f.rows) + 1)
	r.ID = id
	r.Status = domain.UnbanStatusPending
	f.rows[id] = r
	return id, nil
}

func (f *fakeUnbans) Get(_ context.Context, id int64) (domain.UnbanRequest, error) {
	r, ok := f.rows[id]
	if !ok {
		return domain.UnbanRequest{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeUnbans) ListPending(_ context.Context) ([]domain.UnbanRequest, error) {
	var out []domain.UnbanRequest
	for _, r := range f.rows {
		if r.Status == domain.UnbanStatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeUnbans) Review(_ context.Context, id int64, status string, _ int64, _ string) error {
	r, ok := f.rows[id]
	if !ok || r.Status != domain.UnbanStatusPending {
		return domain.ErrNotFound
	}
	r.Status = status
	f.rows[id] = r
	return nil
}

func (f *fakeUnbans) Reopen(_ context.Context, id int64) error {
	r, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = domain.UnbanStatusPending
	f.rows[id] = r
	return nil
}

type fakeBlacklist struct {
	entries    map[int64]string
	failRemove error
}

func (f *fakeBlacklist) Add(_ context.Context, id int64, reason string) error {
	f.entries[id] = reason
	return nil
}

func (f *fakeBlacklist) Remove(_ context.Context, id int64) error {
	if f.failRemove != nil {
		return f.failRemove
	}
	if _, ok := f.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeBlacklist) Get(_ context.Context, id int64) (domain.BlacklistEntry, error) {
	reason, ok := f.entries[id]
	if !ok {
		return domain.BlacklistEntry{}, domain.ErrNotFound
	}
	return domain.BlacklistEntry{UserID: id, Reason: reason}, nil
}

func (f *fakeBlacklist) IsBarred(_ context.Context, id int64) (bool, error) {
	_, ok := f.entries[id]
	return ok, nil
}

type testBench struct {
	dp        *Dispatcher
	messenger *fakeMessenger
	users     *fakeUsers
	staff     *fakeStaff
	certs     *fakeCertificates
	unbans    *fakeUnbans
	barred    *fakeBlacklist
	sessions  session.Store
}

func newBench(t *testing.T) *testBench {
	t.Helper()
	b := &testBench{
		messenger: &fakeMessenger{unreachable: map[int64]bool{}},
		users:     &fakeUsers{roles: map[int64]domain.Role{}},
		staff:     &fakeStaff{admins: map[int64]bool{}, deans: map[int64]bool{}},
		certs:     &fakeCertificates{rows: map[int64]domain.CertificateRequest{}},
		unbans:    &fakeUnbans{rows: map[int64]domain.UnbanRequest{}},
		barred:    &fakeBlacklist{entries: map[int64]string{}},
		sessions:  session.NewMemoryStore(0),
	}
	engine, err := flow.NewEngine(b.sessions, flows.All(flows.Deps{
		UserExists: b.users.Exists,
		IsBarred:   b.barred.IsBarred,
	})...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	deps := Deps{
		Engine:       engine,
		Sessions:     b.sessions,
		Messenger:    b.messenger,
		Users:        b.users,
		Staff:        b.staff,
		Certificates: b.certs,
		Unbans:       b.unbans,
		Blacklist:    b.barred,
	}
	nav, err := queue.NewNavigator(QueueDefinitions(deps)...)
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	deps.Navigator = nav
	b.dp = New(deps)
	return b
}

var (
	operator = Sender{UserID: 1, ChatID: 100, Username: "op"}
	student  = Sender{UserID: 2, ChatID: 200, Username: "stud"}
)

func TestCertificateFlowEndToEnd(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()

	if err := b.dp.OnButton(ctx, student, keyFlowStart, flows.CertificateRequest); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, msg := range []string{"Иванов Иван", "ИС-21", "2"} {
		if err := b.dp.OnText(ctx, student, msg); err != nil {
			t.Fatalf("OnText(%q): %v", msg, err)
		}
	}

	if len(b.certs.rows) != 1 {
		t.Fatalf("certificate rows = %d, want 1", len(b.certs.rows))
	}
	for _, r := range b.certs.rows {
		if r.FullName != "Иванов Иван" || r.Count != 2 || r.UserID != student.UserID {
			t.Fatalf("stored request = %+v", r)
		}
	}
	if !strings.Contains(b.messenger.lastText(), "принята") {
		t.Fatalf("confirmation = %q", b.messenger.lastText())
	}
	if b.dp.InProgress(student.UserID) {
		t.Fatal("session left open after completion")
	}
}

func TestStartFlowReplacesActiveSession(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()

	if err := b.dp.OnButton(ctx, student, keyFlowStart, flows.CertificateRequest); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := b.dp.OnText(ctx, student, "Иванов"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := b.dp.OnButton(ctx, student, keyFlowStart, flows.UnbanSubmit); err != nil {
		t.Fatalf("second start: %v", err)
	}

	// The old dialog is gone: this answer lands in the new one and
	// completes it.
	if err := b.dp.OnText(ctx, student, "прошу снять блокировку"); err != nil {
		t.Fatalf("new flow answer: %v", err)
	}
	if len(b.unbans.rows) != 1 {
		t.Fatalf("unban rows = %d, want 1", len(b.unbans.rows))
	}
	if len(b.certs.rows) != 0 {
		t.Fatal("abandoned dialog still produced a record")
	}
}

func TestRoleGrantConfirmAppliesSaga(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[operator.UserID] = domain.RoleAdmin
	b.users.roles[50] = domain.RoleStudent

	if err := b.dp.OnButton(ctx, operator, keyRolePick, "dean"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "50"); err != nil {
		t.Fatalf("target id: %v", err)
	}
	if !strings.Contains(b.messenger.lastText(), "Выдать роль") {
		t.Fatalf("no confirmation summary, last = %q", b.messenger.lastText())
	}
	if err := b.dp.OnButton(ctx, operator, keyRoleConfirm, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if b.users.roles[50] != domain.RoleDean {
		t.Fatalf("target role = %s, want dean", b.users.roles[50])
	}
	if !b.staff.deans[50] {
		t.Fatal("membership row missing after grant")
	}
	if b.dp.InProgress(operator.UserID) {
		t.Fatal("confirmation session not closed")
	}
	if got := b.messenger.textsTo(domain.ToUser(50)); len(got) < 2 {
		t.Fatalf("target notifications = %v, want ping and grant notice", got)
	}
}

func TestRoleGrantUnreachableTargetReprompts(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[60] = domain.RoleStudent
	b.messenger.unreachable[60] = true

	if err := b.dp.OnButton(ctx, operator, keyRolePick, "smm"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "60"); err != nil {
		t.Fatalf("target id: %v", err)
	}

	// The ping failed, so the dialog restarted at the id step instead of
	// moving to confirmation.
	s, ok := b.sessions.Get(operator.UserID)
	if !ok || s.Flow != flows.RoleAssign {
		t.Fatalf("session = %+v, want restarted role-assign", s)
	}
	if b.users.roles[60] != domain.RoleStudent {
		t.Fatal("role mutated without confirmation")
	}
}

func TestRoleGrantCompensatesOnFailure(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[70] = domain.RoleStudent
	b.staff.failAddDean = errors.New("db down")

	if err := b.dp.OnButton(ctx, operator, keyRolePick, "dean"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "70"); err != nil {
		t.Fatalf("target id: %v", err)
	}
	if err := b.dp.OnButton(ctx, operator, keyRoleConfirm, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if b.users.roles[70] != domain.RoleStudent {
		t.Fatalf("role = %s after failed grant, want student kept", b.users.roles[70])
	}
	if b.messenger.lastText() != msgActionFailed {
		t.Fatalf("operator reply = %q, want generic failure", b.messenger.lastText())
	}
}

func TestUnbanApproveCompensatesWhenBarStays(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.barred.entries[90] = "спам"
	id, err := b.unbans.Create(ctx, domain.UnbanRequest{UserID: 90, ChatID: 900, Username: "banned"})
	if err != nil {
		t.Fatalf("seed plea: %v", err)
	}
	b.barred.failRemove = errors.New("db down")

	err = b.dp.OnButton(ctx, operator, keyApprove, "unban:1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	r, _ := b.unbans.Get(ctx, id)
	if r.Status != domain.UnbanStatusPending {
		t.Fatalf("plea status = %s, want pending restored by compensation", r.Status)
	}
	if _, barred := b.barred.entries[90]; !barred {
		t.Fatal("blacklist entry vanished despite failed removal")
	}
	if b.messenger.lastText() != msgActionFailed {
		t.Fatalf("operator reply = %q, want generic failure", b.messenger.lastText())
	}
}

func TestUnbanApproveHappyPath(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.barred.entries[90] = "спам"
	if _, err := b.unbans.Create(ctx, domain.UnbanRequest{UserID: 90, ChatID: 900, Username: "banned"}); err != nil {
		t.Fatalf("seed plea: %v", err)
	}

	if err := b.dp.OnButton(ctx, operator, keyApprove, "unban:1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	r, _ := b.unbans.Get(ctx, 1)
	if r.Status != domain.UnbanStatusApproved {
		t.Fatalf("plea status = %s", r.Status)
	}
	if _, barred := b.barred.entries[90]; barred {
		t.Fatal("bar not lifted")
	}
	if got := b.messenger.textsTo(domain.ToUser(90)); len(got) != 1 {
		t.Fatalf("requester notifications = %v", got)
	}
}

func TestUnbanRejectCollectsNotesFirst(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	if _, err := b.unbans.Create(ctx, domain.UnbanRequest{UserID: 90, ChatID: 900, Username: "banned"}); err != nil {
		t.Fatalf("seed plea: %v", err)
	}

	if err := b.dp.OnButton(ctx, operator, keyReject, "unban:1"); err != nil {
		t.Fatalf("reject press: %v", err)
	}
	if !b.dp.InProgress(operator.UserID) {
		t.Fatal("notes dialog not started")
	}
	if err := b.dp.OnText(ctx, operator, "недостаточно оснований"); err != nil {
		t.Fatalf("notes: %v", err)
	}

	r, _ := b.unbans.Get(ctx, 1)
	if r.Status != domain.UnbanStatusRejected {
		t.Fatalf("plea status = %s", r.Status)
	}
	notes := b.messenger.textsTo(domain.ToUser(90))
	if len(notes) != 1 || !strings.Contains(notes[0], "недостаточно оснований") {
		t.Fatalf("requester notice = %v", notes)
	}
}

func TestSelfSelectDoesNotDowngradeAdmin(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[operator.UserID] = domain.RoleAdmin

	if err := b.dp.OnButton(ctx, operator, keySelfSelect, "student"); err != nil {
		t.Fatalf("self-select: %v", err)
	}
	if b.users.roles[operator.UserID] != domain.RoleAdmin {
		t.Fatal("admin downgraded by self-select")
	}

	if err := b.dp.OnButton(ctx, student, keySelfSelect, "student"); err != nil {
		t.Fatalf("self-select: %v", err)
	}
	if b.users.roles[student.UserID] != domain.RoleStudent {
		t.Fatal("self-select did not set role")
	}
}

func TestStaleButtonGetsFriendlyReply(t *testing.T) {
	b := newBench(t)
	if err := b.dp.OnButton(context.Background(), operator, "legacy.button", "x"); err != nil {
		t.Fatalf("stale button: %v", err)
	}
	if b.messenger.lastText() != msgStaleButton {
		t.Fatalf("reply = %q", b.messenger.lastText())
	}
}

func TestTextDuringConfirmStageIsRefused(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[50] = domain.RoleStudent

	if err := b.dp.OnButton(ctx, operator, keyRolePick, "dean"); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "50"); err != nil {
		t.Fatalf("target id: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "да"); err != nil {
		t.Fatalf("text during confirm: %v", err)
	}
	if b.messenger.lastText() != msgUseButtons {
		t.Fatalf("reply = %q", b.messenger.lastText())
	}
	if !b.dp.InProgress(operator.UserID) {
		t.Fatal("confirm session dropped by text input")
	}
}

func TestQueueNavigationEditsInPlace(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.certs.rows[1] = domain.CertificateRequest{ID: 1, UserID: 10, FullName: "Иванов", Count: 1}
	b.certs.rows[2] = domain.CertificateRequest{ID: 2, UserID: 11, FullName: "Петров", Count: 2}

	if err := b.dp.OnButton(ctx, operator, keyQueueOpen, "certificate"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if b.messenger.edits != 0 {
		t.Fatalf("edits after open = %d, want 0", b.messenger.edits)
	}
	if err := b.dp.OnButton(ctx, operator, queue.ActionNext, "certificate"); err != nil {
		t.Fatalf("next: %v", err)
	}
	if b.messenger.edits != 1 {
		t.Fatalf("edits after next = %d, want 1", b.messenger.edits)
	}
	if err := b.dp.OnButton(ctx, operator, queue.ActionStop, "certificate"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if b.messenger.lastText() != msgQueueStopped {
		t.Fatalf("stop reply = %q", b.messenger.lastText())
	}
	// A second stop has no remembered message to edit and just sends.
	if err := b.dp.OnButton(ctx, operator, queue.ActionStop, "certificate"); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if b.messenger.edits != 2 {
		t.Fatalf("edits after stops = %d, want 2", b.messenger.edits)
	}
}

func TestRoleRemoveUnreachableTargetReprompts(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.users.roles[65] = domain.RoleSMM
	b.messenger.unreachable[65] = true

	if err := b.dp.OnButton(ctx, operator, keyFlowStart, flows.RoleRemove); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.dp.OnText(ctx, operator, "65"); err != nil {
		t.Fatalf("target id: %v", err)
	}

	// The ping failed, so the dialog restarted at the id step instead of
	// moving to confirmation.
	s, ok := b.sessions.Get(operator.UserID)
	if !ok || s.Flow != flows.RoleRemove {
		t.Fatalf("session = %+v, want restarted role-remove", s)
	}
	if b.users.roles[65] != domain.RoleSMM {
		t.Fatal("role mutated without confirmation")
	}
}

func TestTerminalStoreFailureRepliesGenerically(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.certs.failCreate = errors.New("db down")

	if err := b.dp.OnButton(ctx, student, keyFlowStart, flows.CertificateRequest); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, msg := range []string{"Иванов Иван", "ИС-21"} {
		if err := b.dp.OnText(ctx, student, msg); err != nil {
			t.Fatalf("OnText(%q): %v", msg, err)
		}
	}
	if err := b.dp.OnText(ctx, student, "2"); err == nil {
		t.Fatal("store failure did not propagate")
	}

	if b.messenger.lastText() != msgActionFailed {
		t.Fatalf("reply after failed create = %q, want generic failure", b.messenger.lastText())
	}
	if len(b.certs.rows) != 0 {
		t.Fatalf("certificate rows = %d, want 0", len(b.certs.rows))
	}
}
