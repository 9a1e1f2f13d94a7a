package counseling

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID int64) (*types.Session, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.Session, error)
	ListByAgencyAndStatuses(ctx context.Context, tx *gorm.DB, agencyID int64, statuses []types.SessionStatus) ([]*types.Session, error)
	UpdateConsultantAndStatus(dbc dbctx.Context, session *types.Session, consultantID *string, status types.SessionStatus) error
	Delete(ctx context.Context, tx *gorm.DB, sessionID int64) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if session == nil {
		return nil, errors.New("session is required")
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID loads the session with its asker and consultant (agencies included).
func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID int64) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var session types.Session
	if err := transaction.WithContext(ctx).
		Preload("User").
		Preload("Consultant").
		Preload("Consultant.Agencies").
		Where("id = ?", sessionID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (sr *sessionRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Session
	if userID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) ListByAgencyAndStatuses(ctx context.Context, tx *gorm.DB, agencyID int64, statuses []types.SessionStatus) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Session
	if len(statuses) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("User").
		Where("agency_id = ? AND status IN ?", agencyID, statuses).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateConsultantAndStatus writes consultant and status in one row update
// guarded by the session's version. A lost race returns dberr.ErrStaleVersion.
// On success the in-memory session reflects the new row.
func (sr *sessionRepo) UpdateConsultantAndStatus(dbc dbctx.Context, session *types.Session, consultantID *string, status types.SessionStatus) error {
	if session == nil {
		return errors.New("session is required")
	}
	now := time.Now().UTC()
	res := dbc.DB(sr.db).
		Model(&types.Session{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(map[string]any{
			"consultant_id": consultantID,
			"status":        status,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dberr.ErrStaleVersion
	}
	session.ConsultantID = consultantID
	session.Status = status
	session.Version++
	session.UpdatedAt = now
	return nil
}

func (sr *sessionRepo) Delete(ctx context.Context, tx *gorm.DB, sessionID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		Delete(&types.Session{}).Error
}
