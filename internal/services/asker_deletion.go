package services

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	reasonGroupDeletionFailed       = "Deletion of Rocket.Chat group failed"
	reasonSessionDataDeletionFailed = "Unable to delete session data from session"
	reasonSessionDeletionFailed     = "Unable to delete session"
	reasonSessionLookupFailed       = "Unable to load sessions of asker"
)

type askerSessionStore interface {
	ListByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.Session, error)
	Delete(ctx context.Context, tx *gorm.DB, sessionID int64) error
}

type sessionDataStore interface {
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID int64) ([]*types.SessionData, error)
	DeleteAll(ctx context.Context, tx *gorm.DB, rows []*types.SessionData) error
}

// DeleteAskerRoomsAndSessionsAction removes every room and session of an
// asker. Failures are collected on the workflow and never abort the loop.
type DeleteAskerRoomsAndSessionsAction struct {
	log         *logger.Logger
	sessions    askerSessionStore
	sessionData sessionDataStore
	rooms       RoomDeleter
}

func NewDeleteAskerRoomsAndSessionsAction(log *logger.Logger, sessions askerSessionStore, sessionData sessionDataStore, rooms RoomDeleter) *DeleteAskerRoomsAndSessionsAction {
	return &DeleteAskerRoomsAndSessionsAction{
		log:         log.With("service", "DeleteAskerRoomsAndSessionsAction"),
		sessions:    sessions,
		sessionData: sessionData,
		rooms:       rooms,
	}
}

func (a *DeleteAskerRoomsAndSessionsAction) Execute(ctx context.Context, wf *types.AskerDeletionWorkflow) {
	if wf == nil || wf.User == nil {
		return
	}
	sessions, err := a.sessions.ListByUserID(ctx, nil, wf.User.ID)
	if err != nil {
		a.log.Error("Loading sessions of asker failed", "user_id", wf.User.ID, "error", err)
		wf.AddError(types.DeletionTargetDatabase, wf.User.ID, reasonSessionLookupFailed)
		return
	}
	for _, session := range sessions {
		a.deleteSession(ctx, wf, session)
	}
}

func (a *DeleteAskerRoomsAndSessionsAction) deleteSession(ctx context.Context, wf *types.AskerDeletionWorkflow, session *types.Session) {
	sessionID := strconv.FormatInt(session.ID, 10)

	if session.HasGroup() {
		if err := a.rooms.DeleteGroup(ctx, session.GroupID); err != nil {
			a.log.Error("Deleting Rocket.Chat group failed", "session_id", session.ID, "group_id", session.GroupID, "error", err)
			wf.AddError(types.DeletionTargetRocketChat, session.GroupID, reasonGroupDeletionFailed)
		}
	}

	if err := a.deleteSessionData(ctx, session.ID); err != nil {
		a.log.Error("Deleting session data failed", "session_id", session.ID, "error", err)
		wf.AddError(types.DeletionTargetDatabase, sessionID, reasonSessionDataDeletionFailed)
	}

	if err := a.sessions.Delete(ctx, nil, session.ID); err != nil {
		a.log.Error("Deleting session failed", "session_id", session.ID, "error", err)
		wf.AddError(types.DeletionTargetDatabase, sessionID, reasonSessionDeletionFailed)
	}
}

func (a *DeleteAskerRoomsAndSessionsAction) deleteSessionData(ctx context.Context, sessionID int64) error {
	rows, err := a.sessionData.ListBySessionID(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	return a.sessionData.DeleteAll(ctx, nil, rows)
}
