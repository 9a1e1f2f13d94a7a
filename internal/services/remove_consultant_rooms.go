package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

type agencySessionLister interface {
	ListByAgencyAndStatuses(ctx context.Context, tx *gorm.DB, agencyID int64, statuses []types.SessionStatus) ([]*types.Session, error)
}

// ConsultantRoomsService evicts a consultant from the rooms of an agency they
// are leaving.
type ConsultantRoomsService interface {
	RemoveConsultantFromAgencyRooms(ctx context.Context, consultant *types.Consultant, agencyID int64) (int, error)
}

type consultantRoomsService struct {
	log      *logger.Logger
	sessions agencySessionLister
	gateway  ChatMembershipGateway
	locker   RoomLocker
}

func NewConsultantRoomsService(log *logger.Logger, sessions agencySessionLister, gateway ChatMembershipGateway, locker RoomLocker) ConsultantRoomsService {
	return &consultantRoomsService{
		log:      log.With("service", "ConsultantRoomsService"),
		sessions: sessions,
		gateway:  gateway,
		locker:   locker,
	}
}

// RemoveConsultantFromAgencyRooms runs as one batch: if any room fails, the
// removals already made in other rooms are undone. It returns the number of
// rooms visited.
func (s *consultantRoomsService) RemoveConsultantFromAgencyRooms(ctx context.Context, consultant *types.Consultant, agencyID int64) (int, error) {
	if consultant == nil {
		return 0, apierr.BadRequest("invalid_consultant", "consultant is required")
	}
	sessions, err := s.sessions.ListByAgencyAndStatuses(ctx, nil, agencyID,
		[]types.SessionStatus{types.SessionStatusNew, types.SessionStatusInProgress})
	if err != nil {
		return 0, dberr.MapError("session.list_by_agency", err)
	}

	var removals []SessionRemoval
	for _, session := range sessions {
		if !session.HasGroup() || session.IsAssignedTo(consultant.ID) {
			continue
		}
		removals = append(removals, SessionRemoval{Session: session, Consultants: []*types.Consultant{consultant}})
	}
	if len(removals) == 0 {
		return 0, nil
	}

	op := NewRemoveFromGroupOperation(s.gateway, s.locker, s.log, removals)
	if err := op.RemoveFromGroupsOrRollbackOnFailure(ctx); err != nil {
		s.log.Error("removing consultant from agency rooms failed", "consultant_id", consultant.ID, "agency_id", agencyID, "error", err)
		return 0, err
	}
	s.log.Info("consultant removed from agency rooms", "consultant_id", consultant.ID, "agency_id", agencyID, "rooms", len(removals))
	return len(removals), nil
}
