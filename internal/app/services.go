package app

import (
	"fmt"

	"github.com/yungbote/counselbridge-backend/internal/jobs/worker"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/services"
)

type Services struct {
	Auth             services.AuthService
	AssignSession    services.AssignSessionService
	AssignEnquiry    services.AssignEnquiryService
	ConsultantRooms  services.ConsultantRoomsService
	AskerDeletion    *services.DeleteAskerRoomsAndSessionsAction
	MembershipRepair services.MembershipRepairService
	Pool             *worker.Pool
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.authConfig())
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	pool := worker.NewPool(log, cfg.workerConfig())

	gateway := services.NewChatMembershipGateway(clients.RocketChat, log)
	verifier := services.NewAssignmentVerifier(log)
	persistence := services.NewSessionPersistence(reposet.Session)
	resolver := services.NewUnauthorizedMembersResolver(log, services.NewConsultantDirectory(reposet.Consultant), cfg.systemUserIDs())
	notifier := services.NewNotificationDispatcher(log, pool, reposet.Consultant, clients.Mail, cfg.Mail.AppBaseURL)
	statistics := services.NewStatisticsDispatcher(log, pool, clients.Statistics)
	repair := services.NewMembershipRepairService(log, reposet.MembershipRepair, reposet.Session, gateway, resolver, clients.RoomLocker, cfg.Repair.MaxAttempts, cfg.Repair.BatchSize)

	return Services{
		Auth: auth,
		AssignSession: services.NewAssignSessionService(
			log, verifier, persistence, gateway, resolver, clients.RoomLocker, notifier, statistics, repair,
		),
		AssignEnquiry: services.NewAssignEnquiryService(
			log, verifier, persistence, gateway, resolver, clients.RoomLocker, pool, statistics,
		),
		ConsultantRooms:  services.NewConsultantRoomsService(log, reposet.Session, gateway, clients.RoomLocker),
		AskerDeletion:    services.NewDeleteAskerRoomsAndSessionsAction(log, reposet.Session, reposet.SessionData, services.NewRoomDeleter(clients.RocketChat, log)),
		MembershipRepair: repair,
		Pool:             pool,
	}, nil
}
