package counseling

import (
	"context"
	"errors"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ConsultantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, consultant *types.Consultant) (*types.Consultant, error)
	GetByID(ctx context.Context, tx *gorm.DB, consultantID string) (*types.Consultant, error)
	FindByRocketChatID(ctx context.Context, tx *gorm.DB, rocketChatID string) (*types.Consultant, error)
}

type consultantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConsultantRepo(db *gorm.DB, baseLog *logger.Logger) ConsultantRepo {
	repoLog := baseLog.With("repo", "ConsultantRepo")
	return &consultantRepo{db: db, log: repoLog}
}

func (cr *consultantRepo) Create(ctx context.Context, tx *gorm.DB, consultant *types.Consultant) (*types.Consultant, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if consultant == nil {
		return nil, errors.New("consultant is required")
	}
	if err := transaction.WithContext(ctx).Create(consultant).Error; err != nil {
		return nil, err
	}
	return consultant, nil
}

func (cr *consultantRepo) GetByID(ctx context.Context, tx *gorm.DB, consultantID string) (*types.Consultant, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var consultant types.Consultant
	if err := transaction.WithContext(ctx).
		Preload("Agencies").
		Where("consultant_id = ?", consultantID).
		First(&consultant).Error; err != nil {
		return nil, err
	}
	return &consultant, nil
}

// FindByRocketChatID returns nil without error when no active consultant owns the chat account.
func (cr *consultantRepo) FindByRocketChatID(ctx context.Context, tx *gorm.DB, rocketChatID string) (*types.Consultant, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if rocketChatID == "" {
		return nil, nil
	}
	var results []*types.Consultant
	if err := transaction.WithContext(ctx).
		Preload("Agencies").
		Where("rc_user_id = ?", rocketChatID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
