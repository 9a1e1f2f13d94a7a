package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/counselbridge-backend/internal/data/repos"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

type Repos struct {
	Session          repos.SessionRepo
	SessionData      repos.SessionDataRepo
	Consultant       repos.ConsultantRepo
	User             repos.UserRepo
	MembershipRepair repos.MembershipRepairRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Session:          repos.NewSessionRepo(db, log),
		SessionData:      repos.NewSessionDataRepo(db, log),
		Consultant:       repos.NewConsultantRepo(db, log),
		User:             repos.NewUserRepo(db, log),
		MembershipRepair: repos.NewMembershipRepairRepo(db, log),
	}
}
