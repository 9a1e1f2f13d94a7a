package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/http/response"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/services"
)

const CodeRegistrationTypeMismatch = "registration_type_mismatch"

type sessionGetter interface {
	GetByID(ctx context.Context, tx *gorm.DB, sessionID int64) (*types.Session, error)
}

type consultantGetter interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Consultant, error)
}

type AssignmentHandler struct {
	log         *logger.Logger
	sessions    sessionGetter
	consultants consultantGetter
	assign      services.AssignSessionService
	enquiries   services.AssignEnquiryService
}

func NewAssignmentHandler(
	log *logger.Logger,
	sessions sessionGetter,
	consultants consultantGetter,
	assign services.AssignSessionService,
	enquiries services.AssignEnquiryService,
) *AssignmentHandler {
	return &AssignmentHandler{
		log:         log.With("handler", "AssignmentHandler"),
		sessions:    sessions,
		consultants: consultants,
		assign:      assign,
		enquiries:   enquiries,
	}
}

type assignmentResponse struct {
	SessionID            int64    `json:"session_id"`
	State                string   `json:"state"`
	PreviousStatus       string   `json:"previous_status"`
	Status               string   `json:"status"`
	RemovedConsultantIDs []string `json:"removed_consultant_ids"`
}

// PUT /users/sessions/:sessionId/consultant/:consultantId
func (h *AssignmentHandler) AssignSession(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, err := int64Param(c, "sessionId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	consultantID, err := stringParam(c, "consultantId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	session, err := h.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("session.get", err))
		return
	}
	consultant, err := h.consultants.GetByID(ctx, nil, consultantID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("consultant.get", err))
		return
	}

	actor := actorFrom(c)
	acting, err := h.actingConsultant(ctx, actor)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	out, err := h.assign.AssignSession(ctx, services.AssignSessionInput{
		Session:          session,
		Consultant:       consultant,
		ActingConsultant: acting,
		Actor:            actor,
		Tenant:           tenantFrom(c, session),
		Request:          requestMetaFrom(c),
		// the current consultant may hand the session over to a colleague
		AllowReassignment: actor.UserID != "" && session.IsAssignedTo(actor.UserID),
	})
	if err != nil {
		_ = c.Error(err)
		response.RespondAPIError(c, err)
		return
	}
	removed := out.RemovedConsultantIDs
	if removed == nil {
		removed = []string{}
	}
	response.RespondOK(c, assignmentResponse{
		SessionID:            out.SessionID,
		State:                string(out.FinalState),
		PreviousStatus:       string(out.PreviousStatus),
		Status:               string(out.NewStatus),
		RemovedConsultantIDs: removed,
	})
}

// PUT /users/sessions/new/:sessionId
func (h *AssignmentHandler) AcceptEnquiry(c *gin.Context) {
	h.acceptEnquiry(c, types.RegistrationTypeRegistered)
}

// PUT /conversations/anonymous/:sessionId/accept
func (h *AssignmentHandler) AcceptAnonymousEnquiry(c *gin.Context) {
	h.acceptEnquiry(c, types.RegistrationTypeAnonymous)
}

// acceptEnquiry assigns the session to the calling consultant.
func (h *AssignmentHandler) acceptEnquiry(c *gin.Context, want types.RegistrationType) {
	ctx := c.Request.Context()
	sessionID, err := int64Param(c, "sessionId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	actor := actorFrom(c)
	session, err := h.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("session.get", err))
		return
	}
	if session.RegistrationType != want {
		response.RespondAPIError(c, apierr.BadRequest(CodeRegistrationTypeMismatch,
			"session %d is %s, not %s", session.ID, session.RegistrationType, want))
		return
	}
	consultant, err := h.consultants.GetByID(ctx, nil, actor.UserID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("consultant.get", err))
		return
	}

	in := services.AssignEnquiryInput{
		Session:    session,
		Consultant: consultant,
		Actor:      actor,
		Tenant:     tenantFrom(c, session),
		Request:    requestMetaFrom(c),
	}
	if want == types.RegistrationTypeAnonymous {
		err = h.enquiries.AssignAnonymousEnquiry(ctx, in)
	} else {
		err = h.enquiries.AssignRegisteredEnquiry(ctx, in)
	}
	if err != nil {
		_ = c.Error(err)
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// actingConsultant resolves the caller as a consultant. Admins and askers
// have no consultant record and yield nil.
func (h *AssignmentHandler) actingConsultant(ctx context.Context, actor types.AuthenticatedUser) (*types.Consultant, error) {
	if !actor.IsConsultant() || actor.UserID == "" {
		return nil, nil
	}
	acting, err := h.consultants.GetByID(ctx, nil, actor.UserID)
	if err != nil {
		mapped := dberr.MapError("consultant.get_acting", err)
		if apierr.StatusOf(mapped) == http.StatusNotFound {
			h.log.Warn("caller has the consultant role but no consultant record", "consultant_id", actor.UserID)
			return nil, nil
		}
		return nil, mapped
	}
	return acting, nil
}
