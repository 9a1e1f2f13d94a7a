package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	CodeRoomJoinFailed   = "room_join_failed"
	CodeMemberListFailed = "room_member_list_failed"

	tracerName = "github.com/yungbote/counselbridge-backend/internal/services"
)

type AssignSessionInput struct {
	Session          *types.Session
	Consultant       *types.Consultant
	ActingConsultant *types.Consultant
	Actor            types.AuthenticatedUser
	Tenant           types.TenantContext
	Request          types.RequestMeta
	// AllowReassignment lets the candidate take over an IN_PROGRESS session
	// held by someone else.
	AllowReassignment bool
}

type AssignmentOutcome struct {
	SessionID            int64
	FinalState           types.AssignmentState
	PreviousStatus       types.SessionStatus
	NewStatus            types.SessionStatus
	RemovedConsultantIDs []string
}

type AssignSessionService interface {
	AssignSession(ctx context.Context, in AssignSessionInput) (*AssignmentOutcome, error)
}

type assignSessionService struct {
	log        *logger.Logger
	verifier   AssignmentVerifier
	sessions   SessionPersistence
	gateway    ChatMembershipGateway
	resolver   UnauthorizedMembersResolver
	locker     RoomLocker
	notifier   NotificationDispatcher
	statistics StatisticsDispatcher
	repairs    MembershipRepairRecorder
}

func NewAssignSessionService(
	log *logger.Logger,
	verifier AssignmentVerifier,
	sessions SessionPersistence,
	gateway ChatMembershipGateway,
	resolver UnauthorizedMembersResolver,
	locker RoomLocker,
	notifier NotificationDispatcher,
	statistics StatisticsDispatcher,
	repairs MembershipRepairRecorder,
) AssignSessionService {
	return &assignSessionService{
		log:        log.With("service", "AssignSessionService"),
		verifier:   verifier,
		sessions:   sessions,
		gateway:    gateway,
		resolver:   resolver,
		locker:     locker,
		notifier:   notifier,
		statistics: statistics,
		repairs:    repairs,
	}
}

// AssignSession moves a session to a consultant and brings the chat room in
// line with it. Steps up to reconciliation run on the caller's goroutine;
// e-mail and statistics are queued and not awaited.
func (s *assignSessionService) AssignSession(ctx context.Context, in AssignSessionInput) (out *AssignmentOutcome, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assignment.AssignSession")
	out = &AssignmentOutcome{FinalState: types.AssignmentFailed}
	defer func() {
		span.SetAttributes(
			attribute.Int64("session.id", out.SessionID),
			attribute.String("assignment.final_state", string(out.FinalState)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if metrics := observability.Current(); metrics != nil {
			metrics.ObserveAssignment("assign_session", string(out.FinalState))
		}
	}()

	session, candidate := in.Session, in.Consultant
	if session != nil {
		out.SessionID = session.ID
		out.PreviousStatus = session.Status
	}

	allow := in.AllowReassignment || (candidate != nil && session.IsAssignedTo(candidate.ID))
	if err := s.verifier.VerifyPreconditionsForAssignment(session, candidate, allow); err != nil {
		return out, err
	}
	out.FinalState = types.AssignmentValidated
	log := s.log.WithRequest(ctx).With("session_id", session.ID, "group_id", session.GroupID, "consultant_id", candidate.ID)

	status := session.Status
	if status == types.SessionStatusNew {
		status = types.SessionStatusInProgress
	}
	consultantID := candidate.ID
	if err := s.sessions.UpdateConsultantAndStatus(ctx, session, &consultantID, status); err != nil {
		out.FinalState = types.AssignmentFailed
		log.Error("persisting assignment failed", "error", err)
		return out, err
	}
	session.Consultant = candidate
	out.FinalState = types.AssignmentPersisted
	out.NewStatus = status

	if session.HasGroup() {
		if err := s.joinRoom(ctx, log, session, candidate); err != nil {
			out.FinalState = types.AssignmentFailed
			return out, err
		}
		out.FinalState = types.AssignmentRoomJoined

		removed, err := s.reconcile(ctx, session, candidate, in.ActingConsultant)
		if err != nil {
			out.FinalState = types.AssignmentFailed
			log.Error("room reconciliation failed", "error", err)
			return out, err
		}
		out.RemovedConsultantIDs = removed
		out.FinalState = types.AssignmentReconciled
	} else {
		log.Warn("session has no chat room, membership steps skipped")
	}

	s.notify(ctx, in)
	out.FinalState = types.AssignmentNotified
	log.Info("session assigned", "previous_status", out.PreviousStatus, "status", out.NewStatus, "removed", len(out.RemovedConsultantIDs))
	return out, nil
}

// joinRoom adds the consultant to the room. The persisted assignment is kept
// when this fails; a repair task is recorded so the membership job can
// converge the room later.
func (s *assignSessionService) joinRoom(ctx context.Context, log *logger.Logger, session *types.Session, candidate *types.Consultant) error {
	if err := s.gateway.AddMember(ctx, candidate.RocketChatID, session.GroupID); err != nil {
		log.Error("adding consultant to room failed", "error", err)
		if s.repairs != nil {
			task := &types.MembershipRepairTask{
				SessionID:    session.ID,
				GroupID:      session.GroupID,
				RocketChatID: candidate.RocketChatID,
				ConsultantID: candidate.ID,
				Reason:       "assign_session",
				LastError:    err.Error(),
				Details:      repairDetails(ctx),
			}
			if recErr := s.repairs.Record(context.WithoutCancel(ctx), task); recErr != nil {
				log.Error("recording membership repair task failed", "error", recErr)
			}
		}
		return apierr.Internal(CodeRoomJoinFailed,
			fmt.Errorf("add consultant %s to group %s: %w", candidate.ID, session.GroupID, err))
	}
	if err := s.gateway.StripSystemMessages(ctx, session.GroupID); err != nil {
		log.Warn("removing system messages failed", "error", err)
	}
	return nil
}

// repairDetails ties a repair task back to the request that created it.
func repairDetails(ctx context.Context) datatypes.JSON {
	raw, err := json.Marshal(map[string]string{
		"request_id": ctxutil.RequestID(ctx),
		"recorded":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *assignSessionService) reconcile(ctx context.Context, session *types.Session, candidate, acting *types.Consultant) ([]string, error) {
	members, err := s.gateway.ListMembers(ctx, session.GroupID)
	if err != nil {
		return nil, apierr.Internal(CodeMemberListFailed,
			fmt.Errorf("list members of group %s: %w", session.GroupID, err))
	}
	toRemove, err := s.resolver.ObtainConsultantsToRemove(ctx, session.GroupID, session, candidate, members, acting)
	if err != nil {
		return nil, err
	}
	if len(toRemove) == 0 {
		return nil, nil
	}
	// members may leave between listing and eviction
	op := NewRemoveFromGroupOperation(s.gateway, s.locker, s.log, []SessionRemoval{{Session: session, Consultants: toRemove}})
	if err := op.RemoveFromGroupOrRollbackOnFailure(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(toRemove))
	for _, c := range toRemove {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *assignSessionService) notify(ctx context.Context, in AssignSessionInput) {
	session, candidate := in.Session, in.Consultant
	if !in.Actor.IsAdviceSeeker() && in.Actor.UserID != candidate.ID && s.notifier != nil {
		askerName := ""
		if session.User != nil {
			askerName = session.User.Username
		}
		s.notifier.SendAssignmentEmail(ctx, candidate, in.Actor.UserID, askerName, in.Tenant)
	}
	if s.statistics != nil {
		s.statistics.FireEvent(ctx, newAssignStatisticsEvent(session, candidate, in))
	}
}

func newAssignStatisticsEvent(session *types.Session, candidate *types.Consultant, in AssignSessionInput) types.StatisticsEvent {
	tenantID := in.Tenant.IDPtr()
	if tenantID == nil {
		tenantID = session.TenantID
	}
	return types.StatisticsEvent{
		EventType:      types.StatisticsEventAssignSession,
		UserID:         candidate.ID,
		UserRole:       types.StatisticsUserRoleConsultant,
		SessionID:      session.ID,
		RequestURI:     in.Request.URI,
		RequestReferer: in.Request.Referer,
		RequestUserID:  in.Actor.UserID,
		TenantID:       tenantID,
		Timestamp:      time.Now().UTC(),
	}
}
