package counseling

import (
	"context"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type SessionDataRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.SessionData) ([]*types.SessionData, error)
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID int64) ([]*types.SessionData, error)
	DeleteAll(ctx context.Context, tx *gorm.DB, rows []*types.SessionData) error
}

type sessionDataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionDataRepo(db *gorm.DB, baseLog *logger.Logger) SessionDataRepo {
	repoLog := baseLog.With("repo", "SessionDataRepo")
	return &sessionDataRepo{db: db, log: repoLog}
}

func (sr *sessionDataRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.SessionData) ([]*types.SessionData, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(rows) == 0 {
		return []*types.SessionData{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (sr *sessionDataRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID int64) ([]*types.SessionData, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.SessionData
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionDataRepo) DeleteAll(ctx context.Context, tx *gorm.DB, rows []*types.SessionData) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			ids = append(ids, row.ID)
		}
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.SessionData{}).Error
}
