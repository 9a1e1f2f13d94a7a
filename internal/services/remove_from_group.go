package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	CodeMembershipRemovalFailed  = "membership_removal_failed"
	CodeMembershipRollbackFailed = "membership_rollback_failed"

	rollbackFailedTag = "ERROR: Failed to rollback"
)

// SessionRemoval names the consultants to evict from one session's room.
type SessionRemoval struct {
	Session     *types.Session
	Consultants []*types.Consultant
}

// RemoveFromGroupOperation evicts a batch of consultants from chat rooms.
// Either every requested removal succeeds or the consultants touched in this
// run, including the one whose removal failed, are re-added in the order
// they were processed. A failing room stays locked until its rollback ends.
type RemoveFromGroupOperation struct {
	gateway  ChatMembershipGateway
	locker   RoomLocker
	log      *logger.Logger
	removals []SessionRemoval
}

type removedMember struct {
	groupID      string
	rocketChatID string
	consultantID string
}

func NewRemoveFromGroupOperation(gateway ChatMembershipGateway, locker RoomLocker, log *logger.Logger, removals []SessionRemoval) *RemoveFromGroupOperation {
	if locker == nil {
		locker = noopRoomLocker{}
	}
	return &RemoveFromGroupOperation{
		gateway:  gateway,
		locker:   locker,
		log:      log.With("service", "RemoveFromGroupOperation"),
		removals: removals,
	}
}

// RemoveFromGroupsOrRollbackOnFailure requires every room and member to exist.
func (op *RemoveFromGroupOperation) RemoveFromGroupsOrRollbackOnFailure(ctx context.Context) error {
	return op.run(ctx, false)
}

// RemoveFromGroupOrRollbackOnFailure treats a missing room or member as already removed.
func (op *RemoveFromGroupOperation) RemoveFromGroupOrRollbackOnFailure(ctx context.Context) error {
	return op.run(ctx, true)
}

func (op *RemoveFromGroupOperation) run(ctx context.Context, ignoreMissing bool) error {
	var removed []removedMember
	for _, removal := range op.removals {
		if removal.Session == nil || !removal.Session.HasGroup() || len(removal.Consultants) == 0 {
			continue
		}
		groupID := removal.Session.GroupID
		unlock, err := op.locker.Lock(ctx, groupID)
		if err != nil {
			return op.rollback(ctx, removed, nil, groupID, fmt.Errorf("lock group %s: %w", groupID, err))
		}
		touched, err := op.removeFromRoom(ctx, removal, ignoreMissing)
		if err != nil {
			err = op.rollback(ctx, removed, touched, groupID, err)
			unlock()
			return err
		}
		unlock()
		removed = append(removed, touched...)
	}
	if len(removed) > 0 {
		observeRemoval("ok")
	}
	return nil
}

func observeRemoval(result string) {
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveMembershipRemoval(result)
	}
}

// removeFromRoom runs with the room lock held by the caller. On failure the
// returned members end with the consultant whose removal failed.
func (op *RemoveFromGroupOperation) removeFromRoom(ctx context.Context, removal SessionRemoval, ignoreMissing bool) ([]removedMember, error) {
	groupID := removal.Session.GroupID
	members, err := op.gateway.ListMembers(ctx, groupID)
	if err != nil {
		if ignoreMissing && errors.Is(err, rocketchat.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list members of group %s: %w", groupID, err)
	}
	present := make(map[string]struct{}, len(members))
	for _, m := range members {
		present[m.ID] = struct{}{}
	}

	remove := op.gateway.RemoveMember
	if ignoreMissing {
		remove = op.gateway.RemoveMemberIgnoreMissing
	}

	var touched []removedMember
	for _, consultant := range removal.Consultants {
		if consultant == nil || consultant.RocketChatID == "" {
			continue
		}
		if _, ok := present[consultant.RocketChatID]; !ok {
			continue
		}
		m := removedMember{groupID: groupID, rocketChatID: consultant.RocketChatID, consultantID: consultant.ID}
		touched = append(touched, m)
		if err := remove(ctx, consultant.RocketChatID, groupID); err != nil {
			return touched, fmt.Errorf("remove consultant %s: %w", consultant.ID, err)
		}
		op.log.Info("consultant removed from group", "session_id", removal.Session.ID, "group_id", groupID, "consultant_id", consultant.ID)
	}
	return touched, nil
}

// rollback re-adds members of earlier rooms, re-locking each room, then the
// members of the failing room whose lock the caller still holds. It runs to
// completion even when the caller's context is already cancelled.
func (op *RemoveFromGroupOperation) rollback(ctx context.Context, earlier, held []removedMember, failedGroupID string, cause error) error {
	rbCtx := context.WithoutCancel(ctx)
	var rollbackErrs []error
	readd := func(m removedMember, err error) {
		if err != nil {
			op.log.Error("re-adding consultant failed", "group_id", m.groupID, "consultant_id", m.consultantID, "error", err)
			rollbackErrs = append(rollbackErrs, fmt.Errorf("re-add consultant %s to group %s: %w", m.consultantID, m.groupID, err))
		}
	}
	for _, m := range earlier {
		readd(m, op.readdLocked(rbCtx, m))
	}
	for _, m := range held {
		readd(m, op.gateway.AddMember(rbCtx, m.rocketChatID, m.groupID))
	}

	if len(rollbackErrs) > 0 {
		observeRemoval("rollback_failed")
		op.log.Error("membership rollback failed, room needs manual repair",
			"group_id", failedGroupID, "error", cause, "rollback_failures", len(rollbackErrs))
		return apierr.Internal(CodeMembershipRollbackFailed, fmt.Errorf(
			"%s removal of consultants from group %s: %w",
			rollbackFailedTag, failedGroupID, errors.Join(append([]error{cause}, rollbackErrs...)...),
		))
	}

	observeRemoval("rolled_back")
	op.log.Warn("membership removal failed, touched consultants re-added",
		"group_id", failedGroupID, "readded", len(earlier)+len(held), "error", cause)
	return apierr.Internal(CodeMembershipRemovalFailed,
		fmt.Errorf("Failed to remove consultants from group %s: %w", failedGroupID, cause))
}

func (op *RemoveFromGroupOperation) readdLocked(ctx context.Context, m removedMember) error {
	unlock, err := op.locker.Lock(ctx, m.groupID)
	if err != nil {
		return err
	}
	defer unlock()
	return op.gateway.AddMember(ctx, m.rocketChatID, m.groupID)
}
