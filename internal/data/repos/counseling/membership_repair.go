package counseling

import (
	"context"
	"errors"
	"time"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type MembershipRepairRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.MembershipRepairTask) (*types.MembershipRepairTask, error)
	ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.MembershipRepairTask, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, taskID int64, updates map[string]interface{}) error
}

type membershipRepairRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMembershipRepairRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepairRepo {
	repoLog := baseLog.With("repo", "MembershipRepairRepo")
	return &membershipRepairRepo{db: db, log: repoLog}
}

func (mr *membershipRepairRepo) Create(ctx context.Context, tx *gorm.DB, task *types.MembershipRepairTask) (*types.MembershipRepairTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if task == nil {
		return nil, errors.New("repair task is required")
	}
	if task.Status == "" {
		task.Status = types.RepairStatusPending
	}
	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// ListPending returns the oldest pending tasks first.
func (mr *membershipRepairRepo) ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.MembershipRepairTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.MembershipRepairTask
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.RepairStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *membershipRepairRepo) UpdateFields(ctx context.Context, tx *gorm.DB, taskID int64, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&types.MembershipRepairTask{}).
		Where("id = ?", taskID).
		Updates(updates).Error
}
