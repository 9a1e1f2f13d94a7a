package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/counselbridge-backend/internal/data/repos"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

// MembershipRepairRecorder persists a room join that has to be retried.
type MembershipRepairRecorder interface {
	Record(ctx context.Context, task *types.MembershipRepairTask) error
}

type SweepResult struct {
	Resolved  int
	Retried   int
	Abandoned int
}

type MembershipRepairService interface {
	MembershipRepairRecorder
	// Sweep retries pending room joins once each and evicts members the
	// skipped reconciliation would have removed.
	Sweep(ctx context.Context) (SweepResult, error)
}

type sessionLoader interface {
	GetByID(ctx context.Context, tx *gorm.DB, sessionID int64) (*types.Session, error)
}

type membershipRepairService struct {
	log         *logger.Logger
	tasks       repos.MembershipRepairRepo
	sessions    sessionLoader
	gateway     ChatMembershipGateway
	resolver    UnauthorizedMembersResolver
	locker      RoomLocker
	maxAttempts int
	batchSize   int
}

func NewMembershipRepairService(
	log *logger.Logger,
	tasks repos.MembershipRepairRepo,
	sessions sessionLoader,
	gateway ChatMembershipGateway,
	resolver UnauthorizedMembersResolver,
	locker RoomLocker,
	maxAttempts int,
	batchSize int,
) MembershipRepairService {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	if batchSize < 1 {
		batchSize = 50
	}
	return &membershipRepairService{
		log:         log.With("service", "MembershipRepairService"),
		tasks:       tasks,
		sessions:    sessions,
		gateway:     gateway,
		resolver:    resolver,
		locker:      locker,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
	}
}

func (s *membershipRepairService) Record(ctx context.Context, task *types.MembershipRepairTask) error {
	if task == nil {
		return errors.New("repair task is required")
	}
	task.Status = types.RepairStatusPending
	if _, err := s.tasks.Create(ctx, nil, task); err != nil {
		return fmt.Errorf("create repair task: %w", err)
	}
	s.log.Warn("membership repair task recorded",
		"task_id", task.ID, "session_id", task.SessionID, "group_id", task.GroupID, "consultant_id", task.ConsultantID)
	return nil
}

func (s *membershipRepairService) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	pending, err := s.tasks.ListPending(ctx, nil, s.batchSize)
	if err != nil {
		return res, fmt.Errorf("list pending repair tasks: %w", err)
	}
	for _, task := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		status := s.repair(ctx, task)
		if metrics := observability.Current(); metrics != nil && status != "" {
			metrics.ObserveRepairTask(string(status))
		}
		switch status {
		case types.RepairStatusResolved:
			res.Resolved++
		case types.RepairStatusAbandoned:
			res.Abandoned++
		case types.RepairStatusPending:
			res.Retried++
		}
	}
	if len(pending) > 0 {
		s.log.Info("membership repair sweep finished",
			"resolved", res.Resolved, "retried", res.Retried, "abandoned", res.Abandoned)
	}
	return res, nil
}

// repair returns the status the task ends up in. A lookup failure leaves the
// task untouched and returns "".
func (s *membershipRepairService) repair(ctx context.Context, task *types.MembershipRepairTask) types.RepairStatus {
	log := s.log.With("task_id", task.ID, "session_id", task.SessionID, "group_id", task.GroupID, "consultant_id", task.ConsultantID)

	session, err := s.sessions.GetByID(ctx, nil, task.SessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.finish(ctx, log, task, types.RepairStatusResolved, "session no longer exists")
	}
	if err != nil {
		log.Warn("loading session for repair failed", "error", err)
		return ""
	}
	if !session.IsAssignedTo(task.ConsultantID) || session.GroupID != task.GroupID {
		return s.finish(ctx, log, task, types.RepairStatusResolved, "session reassigned")
	}

	if err := s.gateway.AddMember(ctx, task.RocketChatID, task.GroupID); err != nil {
		return s.fail(ctx, log, task, err)
	}
	if err := s.gateway.StripSystemMessages(ctx, task.GroupID); err != nil {
		log.Warn("removing system messages failed", "error", err)
	}
	if err := s.reconcile(ctx, session, task); err != nil {
		return s.fail(ctx, log, task, err)
	}
	return s.finish(ctx, log, task, types.RepairStatusResolved, "")
}

// reconcile evicts consultants that are no longer entitled to the room.
func (s *membershipRepairService) reconcile(ctx context.Context, session *types.Session, task *types.MembershipRepairTask) error {
	if s.resolver == nil {
		return nil
	}
	members, err := s.gateway.ListMembers(ctx, task.GroupID)
	if err != nil {
		return fmt.Errorf("list members of group %s: %w", task.GroupID, err)
	}
	assignee := session.Consultant
	if assignee == nil || assignee.ID != task.ConsultantID {
		assignee = &types.Consultant{ID: task.ConsultantID, RocketChatID: task.RocketChatID}
	}
	toRemove, err := s.resolver.ObtainConsultantsToRemove(ctx, task.GroupID, session, assignee, members, nil)
	if err != nil || len(toRemove) == 0 {
		return err
	}
	op := NewRemoveFromGroupOperation(s.gateway, s.locker, s.log, []SessionRemoval{{Session: session, Consultants: toRemove}})
	return op.RemoveFromGroupOrRollbackOnFailure(ctx)
}

// fail counts a failed attempt and abandons the task once attempts run out.
func (s *membershipRepairService) fail(ctx context.Context, log *logger.Logger, task *types.MembershipRepairTask, err error) types.RepairStatus {
	attempts := task.Attempts + 1
	if attempts >= s.maxAttempts {
		log.Error("membership repair abandoned, manual repair required", "attempts", attempts, "error", err)
		if upErr := s.tasks.UpdateFields(ctx, nil, task.ID, map[string]interface{}{
			"attempts":   attempts,
			"status":     types.RepairStatusAbandoned,
			"last_error": err.Error(),
		}); upErr != nil {
			log.Error("updating repair task failed", "error", upErr)
		}
		return types.RepairStatusAbandoned
	}
	if upErr := s.tasks.UpdateFields(ctx, nil, task.ID, map[string]interface{}{
		"attempts":   attempts,
		"last_error": err.Error(),
	}); upErr != nil {
		log.Error("updating repair task failed", "error", upErr)
	}
	log.Warn("membership repair attempt failed", "attempts", attempts, "error", err)
	return types.RepairStatusPending
}

func (s *membershipRepairService) finish(ctx context.Context, log *logger.Logger, task *types.MembershipRepairTask, status types.RepairStatus, note string) types.RepairStatus {
	updates := map[string]interface{}{"status": status}
	if note != "" {
		updates["last_error"] = note
	}
	if err := s.tasks.UpdateFields(ctx, nil, task.ID, updates); err != nil {
		log.Error("updating repair task failed", "error", err)
		return ""
	}
	log.Info("membership repair task closed", "status", status, "note", note)
	return status
}
