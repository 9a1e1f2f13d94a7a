package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/http/response"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/services"
)

type userGetter interface {
	GetByID(ctx context.Context, tx *gorm.DB, userID string) (*types.User, error)
}

type askerRoomsDeleter interface {
	Execute(ctx context.Context, wf *types.AskerDeletionWorkflow)
}

type UserAdminHandler struct {
	log         *logger.Logger
	consultants consultantGetter
	users       userGetter
	rooms       services.ConsultantRoomsService
	deletion    askerRoomsDeleter
}

func NewUserAdminHandler(
	log *logger.Logger,
	consultants consultantGetter,
	users userGetter,
	rooms services.ConsultantRoomsService,
	deletion askerRoomsDeleter,
) *UserAdminHandler {
	return &UserAdminHandler{
		log:         log.With("handler", "UserAdminHandler"),
		consultants: consultants,
		users:       users,
		rooms:       rooms,
		deletion:    deletion,
	}
}

// DELETE /useradmin/consultants/:consultantId/agencies/:agencyId/rooms
func (h *UserAdminHandler) RemoveConsultantFromAgencyRooms(c *gin.Context) {
	ctx := c.Request.Context()
	consultantID, err := stringParam(c, "consultantId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	agencyID, err := int64Param(c, "agencyId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	consultant, err := h.consultants.GetByID(ctx, nil, consultantID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("consultant.get", err))
		return
	}
	n, err := h.rooms.RemoveConsultantFromAgencyRooms(ctx, consultant, agencyID)
	if err != nil {
		_ = c.Error(err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rooms": n})
}

// DELETE /useradmin/askers/:userId/rooms
// Partial failures are reported in the body; the status stays 200.
func (h *UserAdminHandler) DeleteAskerRooms(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := stringParam(c, "userId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	user, err := h.users.GetByID(ctx, nil, userID)
	if err != nil {
		response.RespondAPIError(c, dberr.MapError("user.get", err))
		return
	}
	wf := &types.AskerDeletionWorkflow{User: user}
	h.deletion.Execute(ctx, wf)
	if len(wf.Errors) > 0 {
		h.log.Warn("asker room deletion finished with errors", "asker_id", user.ID, "errors", len(wf.Errors))
	}
	errs := wf.Errors
	if errs == nil {
		errs = []types.DeletionWorkflowError{}
	}
	response.RespondOK(c, gin.H{"errors": errs})
}
