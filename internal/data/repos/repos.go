package repos

import (
	"github.com/yungbote/counselbridge-backend/internal/data/repos/counseling"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type SessionRepo = counseling.SessionRepo
type SessionDataRepo = counseling.SessionDataRepo
type ConsultantRepo = counseling.ConsultantRepo
type UserRepo = counseling.UserRepo
type MembershipRepairRepo = counseling.MembershipRepairRepo

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return counseling.NewSessionRepo(db, baseLog)
}
func NewSessionDataRepo(db *gorm.DB, baseLog *logger.Logger) SessionDataRepo {
	return counseling.NewSessionDataRepo(db, baseLog)
}
func NewConsultantRepo(db *gorm.DB, baseLog *logger.Logger) ConsultantRepo {
	return counseling.NewConsultantRepo(db, baseLog)
}
func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return counseling.NewUserRepo(db, baseLog)
}
func NewMembershipRepairRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepairRepo {
	return counseling.NewMembershipRepairRepo(db, baseLog)
}
