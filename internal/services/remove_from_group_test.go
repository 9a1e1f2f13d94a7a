package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

func TestRemoveFromGroup_SkipsEmptyRemovalsWithoutGatewayCalls(t *testing.T) {
	gw := newFakeGateway()
	noGroup := newSession(2, types.SessionStatusNew, 42, "")
	removals := []SessionRemoval{
		{Session: newSession(1, types.SessionStatusNew, 42, "G1")},
		{Session: noGroup, Consultants: []*types.Consultant{newConsultant("a", "rc-a")}},
		{Session: nil, Consultants: []*types.Consultant{newConsultant("b", "rc-b")}},
	}

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), removals)
	if err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background()); err != nil {
		t.Fatalf("strict: %v", err)
	}
	if err := op.RemoveFromGroupOrRollbackOnFailure(context.Background()); err != nil {
		t.Fatalf("ignore missing: %v", err)
	}
	if calls := gw.recorded(); len(calls) != 0 {
		t.Fatalf("expected zero gateway calls, got %v", calls)
	}
}

func TestRemoveFromGroup_RemovesOnlyPresentMembers(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-asker", "rc-a", "rc-b")
	locker := newCountingLocker()
	a, b, absent := newConsultant("a", "rc-a"), newConsultant("b", "rc-b"), newConsultant("x", "rc-x")

	op := NewRemoveFromGroupOperation(gw, locker, logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusInProgress, 42, "G1"), Consultants: []*types.Consultant{a, absent, b}},
	})
	if err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background()); err != nil {
		t.Fatalf("RemoveFromGroupsOrRollbackOnFailure: %v", err)
	}
	removes := gw.callsOf(opRemove)
	if len(removes) != 2 || removes[0].rcUser != "rc-a" || removes[1].rcUser != "rc-b" {
		t.Fatalf("remove calls: got=%v", removes)
	}
	if ids := gw.memberIDs("G1"); len(ids) != 1 || ids[0] != "rc-asker" {
		t.Fatalf("members after removal: got=%v", ids)
	}
	if locker.count("G1") != 1 {
		t.Fatalf("room lock acquisitions: want=1 got=%d", locker.count("G1"))
	}
}

func TestRemoveFromGroup_RollsBackInOrderWhenRemovalFails(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a", "rc-b", "rc-c")
	gw.removeErr["rc-c@G1"] = errors.New("kick refused")
	a, b, c := newConsultant("a", "rc-a"), newConsultant("b", "rc-b"), newConsultant("c", "rc-c")

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusInProgress, 42, "G1"), Consultants: []*types.Consultant{a, b, c}},
	})
	err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if apierr.StatusOf(err) != http.StatusInternalServerError || apierr.CodeOf(err) != CodeMembershipRemovalFailed {
		t.Fatalf("unexpected error classification: %v", err)
	}
	if strings.Contains(err.Error(), rollbackFailedTag) {
		t.Fatalf("successful rollback must not carry the rollback tag: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Failed to remove consultants from group G1") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	adds := gw.callsOf(opAdd)
	if len(adds) != 3 || adds[0].rcUser != "rc-a" || adds[1].rcUser != "rc-b" || adds[2].rcUser != "rc-c" {
		t.Fatalf("rollback adds must follow removal order incl. the failed one, got=%v", adds)
	}
	// the last re-add happens after the failing removal
	calls := gw.recorded()
	if last := calls[len(calls)-1]; last.op != opAdd || last.rcUser != "rc-c" {
		t.Fatalf("rollback must happen after the failure, last call=%v", last)
	}
	if ids := gw.memberIDs("G1"); len(ids) != 3 {
		t.Fatalf("membership not restored: %v", ids)
	}
}

func TestRemoveFromGroup_RollbackFailureIsTagged(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a", "rc-b")
	gw.removeErr["rc-b@G1"] = errors.New("kick refused")
	gw.addErr["rc-a"] = errors.New("invite refused")
	a, b := newConsultant("a", "rc-a"), newConsultant("b", "rc-b")

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusInProgress, 42, "G1"), Consultants: []*types.Consultant{a, b}},
	})
	err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ERROR: Failed to rollback") {
		t.Fatalf("missing rollback tag: %q", err.Error())
	}
	if apierr.CodeOf(err) != CodeMembershipRollbackFailed {
		t.Fatalf("code: got=%q", apierr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "kick refused") || !strings.Contains(err.Error(), "invite refused") {
		t.Fatalf("both causes must be reported: %q", err.Error())
	}
}

func TestRemoveFromGroup_RollsBackAcrossRooms(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a")
	gw.seed("G2", "rc-a")
	gw.removeErr["rc-a@G2"] = errors.New("kick refused")
	a := newConsultant("a", "rc-a")

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusNew, 42, "G1"), Consultants: []*types.Consultant{a}},
		{Session: newSession(2, types.SessionStatusNew, 42, "G2"), Consultants: []*types.Consultant{a}},
	})
	if err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	adds := gw.callsOf(opAdd)
	if len(adds) != 2 || adds[0].groupID != "G1" || adds[1].groupID != "G2" {
		t.Fatalf("expected re-add into G1 then G2, got=%v", adds)
	}
}

func TestRemoveFromGroup_FailedRemovalIsReaddedAndItsFailureTagged(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a")
	gw.removeErr["rc-a@G1"] = errors.New("kick refused")
	gw.addErr["rc-a"] = errors.New("invite refused")
	a := newConsultant("a", "rc-a")

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusInProgress, 42, "G1"), Consultants: []*types.Consultant{a}},
	})
	err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if adds := gw.callsOf(opAdd); len(adds) != 1 || adds[0].rcUser != "rc-a" || adds[0].groupID != "G1" {
		t.Fatalf("failed consultant must be re-added once, got=%v", adds)
	}
	if !strings.Contains(err.Error(), "ERROR: Failed to rollback") || apierr.CodeOf(err) != CodeMembershipRollbackFailed {
		t.Fatalf("missing rollback tag: %q", err.Error())
	}
}

func TestRemoveFromGroup_FailingRoomStaysLockedDuringRollback(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a", "rc-b")
	gw.removeErr["rc-b@G1"] = errors.New("kick refused")
	locker := newCountingLocker()
	a, b := newConsultant("a", "rc-a"), newConsultant("b", "rc-b")

	op := NewRemoveFromGroupOperation(gw, locker, logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusInProgress, 42, "G1"), Consultants: []*types.Consultant{a, b}},
	})
	if err := op.RemoveFromGroupsOrRollbackOnFailure(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if locker.count("G1") != 1 {
		t.Fatalf("rollback must reuse the held lock, acquisitions=%d", locker.count("G1"))
	}
	if ids := gw.memberIDs("G1"); len(ids) != 2 {
		t.Fatalf("membership not restored: %v", ids)
	}
}

func TestRemoveFromGroup_IgnoreMissingVariant(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a", "rc-b")
	gw.removeErr["rc-a@G1"] = rocketchat.ErrMemberNotFound
	gw.listErr["G2"] = rocketchat.ErrRoomNotFound
	a, b := newConsultant("a", "rc-a"), newConsultant("b", "rc-b")

	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusNew, 42, "G1"), Consultants: []*types.Consultant{a, b}},
		{Session: newSession(2, types.SessionStatusNew, 42, "G2"), Consultants: []*types.Consultant{a}},
	})
	if err := op.RemoveFromGroupOrRollbackOnFailure(context.Background()); err != nil {
		t.Fatalf("RemoveFromGroupOrRollbackOnFailure: %v", err)
	}
	if removes := gw.callsOf(opRemoveIgnore); len(removes) != 2 {
		t.Fatalf("ignore-missing removes: want=2 got=%v", removes)
	}
	if adds := gw.callsOf(opAdd); len(adds) != 0 {
		t.Fatalf("no rollback expected, got=%v", adds)
	}

	strict := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(2, types.SessionStatusNew, 42, "G2"), Consultants: []*types.Consultant{a}},
	})
	if err := strict.RemoveFromGroupsOrRollbackOnFailure(context.Background()); !errors.Is(err, rocketchat.ErrRoomNotFound) {
		t.Fatalf("strict variant must surface missing room, got %v", err)
	}
}

func TestRemoveFromGroup_RollbackSurvivesCancelledContext(t *testing.T) {
	gw := newFakeGateway()
	gw.seed("G1", "rc-a", "rc-b")
	gw.removeErr["rc-b@G1"] = context.Canceled
	a, b := newConsultant("a", "rc-a"), newConsultant("b", "rc-b")

	ctx, cancel := context.WithCancel(context.Background())
	op := NewRemoveFromGroupOperation(gw, newCountingLocker(), logger.NewNop(), []SessionRemoval{
		{Session: newSession(1, types.SessionStatusNew, 42, "G1"), Consultants: []*types.Consultant{a, b}},
	})
	cancel()
	err := op.RemoveFromGroupsOrRollbackOnFailure(ctx)
	if err == nil || strings.Contains(err.Error(), rollbackFailedTag) {
		t.Fatalf("expected plain removal failure, got %v", err)
	}
	if adds := gw.callsOf(opAdd); len(adds) != 2 || adds[0].rcUser != "rc-a" || adds[1].rcUser != "rc-b" {
		t.Fatalf("rollback must still re-add rc-a and rc-b, got=%v", adds)
	}
}
