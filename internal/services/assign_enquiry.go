package services

import (
	"context"
	"fmt"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/jobs/worker"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	TaskEnquiryRoomSetup = "enquiry_room_setup"

	CodeEnquiryRoomJoinFailed = "enquiry_room_join_failed"
)

type AssignEnquiryInput struct {
	Session    *types.Session
	Consultant *types.Consultant
	Actor      types.AuthenticatedUser
	Tenant     types.TenantContext
	Request    types.RequestMeta
}

// AssignEnquiryService lets a consultant accept a fresh enquiry.
type AssignEnquiryService interface {
	// AssignRegisteredEnquiry persists the assignment and sets up the room in
	// the background. Room failures are logged, not returned.
	AssignRegisteredEnquiry(ctx context.Context, in AssignEnquiryInput) error
	// AssignAnonymousEnquiry joins the room synchronously and restores the
	// previous assignment when that fails.
	AssignAnonymousEnquiry(ctx context.Context, in AssignEnquiryInput) error
}

type assignEnquiryService struct {
	log        *logger.Logger
	verifier   AssignmentVerifier
	sessions   SessionPersistence
	gateway    ChatMembershipGateway
	resolver   UnauthorizedMembersResolver
	locker     RoomLocker
	pool       *worker.Pool
	statistics StatisticsDispatcher
}

func NewAssignEnquiryService(
	log *logger.Logger,
	verifier AssignmentVerifier,
	sessions SessionPersistence,
	gateway ChatMembershipGateway,
	resolver UnauthorizedMembersResolver,
	locker RoomLocker,
	pool *worker.Pool,
	statistics StatisticsDispatcher,
) AssignEnquiryService {
	return &assignEnquiryService{
		log:        log.With("service", "AssignEnquiryService"),
		verifier:   verifier,
		sessions:   sessions,
		gateway:    gateway,
		resolver:   resolver,
		locker:     locker,
		pool:       pool,
		statistics: statistics,
	}
}

func (s *assignEnquiryService) verify(in AssignEnquiryInput) error {
	if err := s.verifier.VerifySessionIsNotInProgress(in.Session, in.Consultant); err != nil {
		return err
	}
	return s.verifier.VerifyPreconditionsForAssignment(in.Session, in.Consultant, false)
}

func (s *assignEnquiryService) persist(ctx context.Context, session *types.Session, consultant *types.Consultant) error {
	consultantID := consultant.ID
	if err := s.sessions.UpdateConsultantAndStatus(ctx, session, &consultantID, types.SessionStatusInProgress); err != nil {
		return err
	}
	session.Consultant = consultant
	return nil
}

func (s *assignEnquiryService) AssignRegisteredEnquiry(ctx context.Context, in AssignEnquiryInput) (err error) {
	defer func() { observeEnquiry("accept_enquiry", err) }()
	if err := s.verify(in); err != nil {
		return err
	}
	session, consultant := in.Session, in.Consultant
	if err := s.persist(ctx, session, consultant); err != nil {
		s.log.Error("persisting enquiry assignment failed", "session_id", session.ID, "consultant_id", consultant.ID, "error", err)
		return err
	}

	if session.HasGroup() {
		snapshot := *session
		ok := s.pool.Submit(TaskEnquiryRoomSetup, func(taskCtx context.Context) error {
			return s.setupRegisteredRoom(taskCtx, &snapshot, consultant)
		})
		if !ok {
			s.log.Error("enquiry room setup not queued", "session_id", session.ID, "group_id", session.GroupID, "consultant_id", consultant.ID)
		}
	}

	if s.statistics != nil {
		s.statistics.FireEvent(ctx, newAssignStatisticsEvent(session, consultant, AssignSessionInput{
			Actor:   in.Actor,
			Tenant:  in.Tenant,
			Request: in.Request,
		}))
	}
	s.log.Info("registered enquiry accepted", "session_id", session.ID, "consultant_id", consultant.ID)
	return nil
}

// setupRegisteredRoom joins the consultant and evicts everyone no longer
// entitled to the room. A missing room or member counts as already removed.
func (s *assignEnquiryService) setupRegisteredRoom(ctx context.Context, session *types.Session, consultant *types.Consultant) error {
	log := s.log.With("session_id", session.ID, "group_id", session.GroupID, "consultant_id", consultant.ID)

	if err := s.gateway.AddMember(ctx, consultant.RocketChatID, session.GroupID); err != nil {
		log.Error("adding consultant to enquiry room failed", "error", err)
		return err
	}
	if err := s.gateway.StripSystemMessages(ctx, session.GroupID); err != nil {
		log.Error("removing system messages from enquiry room failed", "error", err)
		return err
	}

	members, err := s.gateway.ListMembers(ctx, session.GroupID)
	if err != nil {
		log.Error("listing enquiry room members failed", "error", err)
		return err
	}
	toRemove, err := s.resolver.ObtainConsultantsToRemove(ctx, session.GroupID, session, consultant, members, nil)
	if err != nil {
		log.Error("resolving unauthorized members failed", "error", err)
		return err
	}
	if len(toRemove) == 0 {
		return nil
	}
	op := NewRemoveFromGroupOperation(s.gateway, s.locker, s.log, []SessionRemoval{{Session: session, Consultants: toRemove}})
	if err := op.RemoveFromGroupOrRollbackOnFailure(ctx); err != nil {
		log.Error("removing unauthorized members from enquiry room failed", "error", err)
		return err
	}
	return nil
}

func (s *assignEnquiryService) AssignAnonymousEnquiry(ctx context.Context, in AssignEnquiryInput) (err error) {
	defer func() { observeEnquiry("accept_anonymous_enquiry", err) }()
	if err := s.verify(in); err != nil {
		return err
	}
	session, consultant := in.Session, in.Consultant
	prevConsultantID, prevStatus := session.ConsultantID, session.Status
	prevConsultant := session.Consultant

	if err := s.persist(ctx, session, consultant); err != nil {
		s.log.Error("persisting anonymous enquiry assignment failed", "session_id", session.ID, "consultant_id", consultant.ID, "error", err)
		return err
	}
	log := s.log.WithRequest(ctx).With("session_id", session.ID, "group_id", session.GroupID, "consultant_id", consultant.ID)

	if err := s.gateway.AddMember(ctx, consultant.RocketChatID, session.GroupID); err != nil {
		log.Error("adding consultant to anonymous room failed, restoring session", "error", err)
		if rbErr := s.sessions.UpdateConsultantAndStatus(context.WithoutCancel(ctx), session, prevConsultantID, prevStatus); rbErr != nil {
			log.Error("restoring anonymous session failed", "error", rbErr)
		} else {
			session.Consultant = prevConsultant
		}
		return apierr.Internal(CodeEnquiryRoomJoinFailed,
			fmt.Errorf("add consultant %s to group %s: %w", consultant.ID, session.GroupID, err))
	}
	if err := s.gateway.StripSystemMessages(ctx, session.GroupID); err != nil {
		log.Warn("removing system messages failed", "error", err)
	}

	if s.statistics != nil {
		s.statistics.FireEvent(ctx, newAssignStatisticsEvent(session, consultant, AssignSessionInput{
			Actor:   in.Actor,
			Tenant:  in.Tenant,
			Request: in.Request,
		}))
	}
	log.Info("anonymous enquiry accepted")
	return nil
}

// observeEnquiry counts an acceptance as NOTIFIED once the request side is
// done; the queued room setup reports through the worker pool metrics.
func observeEnquiry(operation string, err error) {
	state := types.AssignmentNotified
	if err != nil {
		state = types.AssignmentFailed
	}
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveAssignment(operation, string(state))
	}
}
