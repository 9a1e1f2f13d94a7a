package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/jobs/worker"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	opAdd          = "add"
	opRemove       = "remove"
	opRemoveIgnore = "remove_ignore_missing"
	opList         = "list"
	opStrip        = "strip"
)

type gatewayCall struct {
	op      string
	rcUser  string
	groupID string
}

// fakeGateway keeps room membership in memory so that adds and removes are
// visible to later list calls.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []gatewayCall
	members   map[string][]types.ChatMember
	addErr    map[string]error
	removeErr map[string]error
	listErr   map[string]error
	stripErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		members:   map[string][]types.ChatMember{},
		addErr:    map[string]error{},
		removeErr: map[string]error{},
		listErr:   map[string]error{},
	}
}

func (g *fakeGateway) seed(groupID string, rcUserIDs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range rcUserIDs {
		g.members[groupID] = append(g.members[groupID], types.ChatMember{ID: id, Username: id})
	}
}

func (g *fakeGateway) record(op, rcUser, groupID string) {
	g.calls = append(g.calls, gatewayCall{op: op, rcUser: rcUser, groupID: groupID})
}

func (g *fakeGateway) AddMember(ctx context.Context, rcUserID, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(opAdd, rcUserID, groupID)
	if err := g.addErr[rcUserID]; err != nil {
		return err
	}
	for _, m := range g.members[groupID] {
		if m.ID == rcUserID {
			return nil
		}
	}
	g.members[groupID] = append(g.members[groupID], types.ChatMember{ID: rcUserID, Username: rcUserID})
	return nil
}

func (g *fakeGateway) remove(op, rcUserID, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(op, rcUserID, groupID)
	if err := g.removeErr[rcUserID+"@"+groupID]; err != nil {
		return err
	}
	kept := g.members[groupID][:0]
	for _, m := range g.members[groupID] {
		if m.ID != rcUserID {
			kept = append(kept, m)
		}
	}
	g.members[groupID] = kept
	return nil
}

func (g *fakeGateway) RemoveMember(ctx context.Context, rcUserID, groupID string) error {
	return g.remove(opRemove, rcUserID, groupID)
}

func (g *fakeGateway) RemoveMemberIgnoreMissing(ctx context.Context, rcUserID, groupID string) error {
	err := g.remove(opRemoveIgnore, rcUserID, groupID)
	if errors.Is(err, rocketchat.ErrRoomNotFound) || errors.Is(err, rocketchat.ErrMemberNotFound) {
		return nil
	}
	return err
}

func (g *fakeGateway) ListMembers(ctx context.Context, groupID string) ([]types.ChatMember, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(opList, "", groupID)
	if err := g.listErr[groupID]; err != nil {
		return nil, err
	}
	return append([]types.ChatMember(nil), g.members[groupID]...), nil
}

func (g *fakeGateway) StripSystemMessages(ctx context.Context, groupID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(opStrip, "", groupID)
	return g.stripErr
}

func (g *fakeGateway) recorded() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

func (g *fakeGateway) callsOf(op string) []gatewayCall {
	var out []gatewayCall
	for _, c := range g.recorded() {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) memberIDs(groupID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for _, m := range g.members[groupID] {
		ids = append(ids, m.ID)
	}
	return ids
}

type persistCall struct {
	sessionID    int64
	consultantID *string
	status       types.SessionStatus
}

// fakeSessionPersistence applies updates to the in-memory session the way
// the repository does. errs are returned in call order.
type fakeSessionPersistence struct {
	mu    sync.Mutex
	calls []persistCall
	errs  []error
}

func (p *fakeSessionPersistence) UpdateConsultantAndStatus(ctx context.Context, session *types.Session, consultantID *string, status types.SessionStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, persistCall{sessionID: session.ID, consultantID: consultantID, status: status})
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return err
		}
	}
	session.ConsultantID = consultantID
	session.Status = status
	session.Version++
	return nil
}

func (p *fakeSessionPersistence) recorded() []persistCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistCall(nil), p.calls...)
}

type fakeDirectory struct {
	byRC  map[string]*types.Consultant
	err   error
	calls int
}

func (d *fakeDirectory) FindByRocketChatID(ctx context.Context, rcUserID string) (*types.Consultant, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.byRC[rcUserID], nil
}

type emailCall struct {
	consultantID string
	actorID      string
	askerName    string
	tenant       types.TenantContext
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []emailCall
}

func (n *fakeNotifier) SendAssignmentEmail(ctx context.Context, consultant *types.Consultant, actorID, askerName string, tenant types.TenantContext) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, emailCall{consultantID: consultant.ID, actorID: actorID, askerName: askerName, tenant: tenant})
}

func (n *fakeNotifier) recorded() []emailCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]emailCall(nil), n.calls...)
}

type fakeStatistics struct {
	mu     sync.Mutex
	events []types.StatisticsEvent
}

func (s *fakeStatistics) FireEvent(ctx context.Context, event types.StatisticsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeStatistics) recorded() []types.StatisticsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.StatisticsEvent(nil), s.events...)
}

type fakeRepairRecorder struct {
	tasks []*types.MembershipRepairTask
	err   error
}

func (r *fakeRepairRecorder) Record(ctx context.Context, task *types.MembershipRepairTask) error {
	r.tasks = append(r.tasks, task)
	return r.err
}

// countingLocker wraps the in-process locker and counts acquisitions per room.
type countingLocker struct {
	inner RoomLocker
	mu    sync.Mutex
	locks map[string]int
}

func newCountingLocker() *countingLocker {
	return &countingLocker{inner: NewLocalRoomLocker(), locks: map[string]int{}}
}

func (l *countingLocker) Lock(ctx context.Context, groupID string) (func(), error) {
	l.mu.Lock()
	l.locks[groupID]++
	l.mu.Unlock()
	return l.inner.Lock(ctx, groupID)
}

func (l *countingLocker) count(groupID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locks[groupID]
}

// poolBarrier lets tests wait for specific pool tasks to finish.
type poolBarrier struct {
	done chan poolResult
}

type poolResult struct {
	name string
	err  error
}

func startTestPool(t *testing.T) (*worker.Pool, *poolBarrier) {
	t.Helper()
	pool := worker.NewPool(logger.NewNop(), worker.Config{Concurrency: 2, QueueSize: 16})
	barrier := &poolBarrier{done: make(chan poolResult, 64)}
	pool.OnDone(func(name string, err error) {
		barrier.done <- poolResult{name: name, err: err}
	})
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool, barrier
}

func (b *poolBarrier) wait(t *testing.T, names ...string) []poolResult {
	t.Helper()
	want := map[string]int{}
	for _, n := range names {
		want[n]++
	}
	var got []poolResult
	timeout := time.After(5 * time.Second)
	for len(got) < len(names) {
		select {
		case res := <-b.done:
			if want[res.name] > 0 {
				want[res.name]--
				got = append(got, res)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for pool tasks %v, finished %d", names, len(got))
		}
	}
	return got
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func newConsultant(id, rcID string, agencyIDs ...int64) *types.Consultant {
	c := &types.Consultant{
		ID:           id,
		Username:     id,
		FirstName:    "First-" + id,
		LastName:     "Last-" + id,
		Email:        id + "@example.org",
		RocketChatID: rcID,
	}
	for _, agencyID := range agencyIDs {
		c.Agencies = append(c.Agencies, types.ConsultantAgency{ConsultantID: id, AgencyID: agencyID})
	}
	return c
}

func newSession(id int64, status types.SessionStatus, agencyID int64, groupID string) *types.Session {
	return &types.Session{
		ID:               id,
		UserID:           "asker-1",
		User:             &types.User{ID: "asker-1", Username: "asker", RcUserID: "rc-asker"},
		AgencyID:         int64Ptr(agencyID),
		GroupID:          groupID,
		Status:           status,
		RegistrationType: types.RegistrationTypeRegistered,
	}
}
