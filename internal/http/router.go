package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	httpH "github.com/yungbote/counselbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/counselbridge-backend/internal/http/middleware"
	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	AssignmentHandler *httpH.AssignmentHandler
	UserAdminHandler  *httpH.UserAdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachTenantHeader())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readiness", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	protected := r.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Assignment
	if cfg.AssignmentHandler != nil {
		consultants := protected.Group("/")
		if cfg.AuthMiddleware != nil {
			consultants.Use(cfg.AuthMiddleware.RequireAnyRole(types.RoleConsultant, types.RoleGroupChatConsultant, types.RoleUserAdmin))
		}
		consultants.PUT("/users/sessions/:sessionId/consultant/:consultantId", cfg.AssignmentHandler.AssignSession)
		consultants.PUT("/users/sessions/new/:sessionId", cfg.AssignmentHandler.AcceptEnquiry)
		consultants.PUT("/conversations/anonymous/:sessionId/accept", cfg.AssignmentHandler.AcceptAnonymousEnquiry)
	}

	// User admin
	if cfg.UserAdminHandler != nil {
		admin := protected.Group("/useradmin")
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAnyRole(types.RoleUserAdmin, types.RoleTechnical))
		}
		admin.DELETE("/consultants/:consultantId/agencies/:agencyId/rooms", cfg.UserAdminHandler.RemoveConsultantFromAgencyRooms)
		admin.DELETE("/askers/:userId/rooms", cfg.UserAdminHandler.DeleteAskerRooms)
	}

	return r
}
