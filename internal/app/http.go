package app

import (
	"database/sql"

	httpapi "github.com/yungbote/counselbridge-backend/internal/http"
	httpH "github.com/yungbote/counselbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/counselbridge-backend/internal/http/middleware"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Assignment *httpH.AssignmentHandler
	UserAdmin  *httpH.UserAdminHandler
}

func wireHandlers(log *logger.Logger, sqlDB *sql.DB, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:     httpH.NewHealthHandler(pinger),
		Assignment: httpH.NewAssignmentHandler(log, reposet.Session, reposet.Consultant, services.AssignSession, services.AssignEnquiry),
		UserAdmin:  httpH.NewUserAdminHandler(log, reposet.Consultant, reposet.User, services.ConsultantRooms, services.AskerDeletion),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *httpapi.Server {
	return httpapi.NewServer(httpapi.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		AssignmentHandler: handlers.Assignment,
		UserAdminHandler:  handlers.UserAdmin,
	})
}
