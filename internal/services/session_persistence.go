package services

import (
	"context"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	"github.com/yungbote/counselbridge-backend/internal/data/repos"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/dbctx"
)

// SessionPersistence is the single-row write the assignment workflow depends on.
type SessionPersistence interface {
	UpdateConsultantAndStatus(ctx context.Context, session *types.Session, consultantID *string, status types.SessionStatus) error
}

type repoSessionPersistence struct {
	repo repos.SessionRepo
}

func NewSessionPersistence(repo repos.SessionRepo) SessionPersistence {
	return &repoSessionPersistence{repo: repo}
}

// UpdateConsultantAndStatus maps a lost version race to a conflict and any
// other failure to an internal error.
func (p *repoSessionPersistence) UpdateConsultantAndStatus(ctx context.Context, session *types.Session, consultantID *string, status types.SessionStatus) error {
	err := p.repo.UpdateConsultantAndStatus(dbctx.Context{Ctx: ctx}, session, consultantID, status)
	return dberr.MapError("session.update_consultant_and_status", err)
}
