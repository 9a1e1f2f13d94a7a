package services

import (
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	CodeSessionNotAssignable     = "session_not_assignable"
	CodeSessionInProgress        = "session_in_progress"
	CodeEnquiryAlreadyAssigned   = "enquiry_already_assigned"
	CodeConsultantAgencyMismatch = "consultant_agency_mismatch"
	CodeConsultantWithoutAgency  = "consultant_without_agency"
)

// AssignmentVerifier checks an assignment against already loaded entities.
// It performs no I/O, so a failure leaves nothing to undo.
type AssignmentVerifier interface {
	VerifyPreconditionsForAssignment(session *types.Session, candidate *types.Consultant, allowReassignment bool) error
	VerifySessionIsNotInProgress(session *types.Session, candidate *types.Consultant) error
}

type assignmentVerifier struct {
	log *logger.Logger
}

func NewAssignmentVerifier(log *logger.Logger) AssignmentVerifier {
	return &assignmentVerifier{log: log.With("service", "AssignmentVerifier")}
}

func (v *assignmentVerifier) VerifyPreconditionsForAssignment(session *types.Session, candidate *types.Consultant, allowReassignment bool) error {
	if session == nil || candidate == nil {
		return apierr.BadRequest("invalid_assignment", "session and consultant are required")
	}

	switch session.Status {
	case types.SessionStatusInitial, types.SessionStatusDone, types.SessionStatusInArchive:
		return apierr.Conflict(CodeSessionNotAssignable,
			"session %d with status %s cannot be assigned", session.ID, session.Status)
	case types.SessionStatusInProgress:
		if session.ConsultantID != nil && !session.IsAssignedTo(candidate.ID) && !allowReassignment {
			return apierr.Conflict(CodeSessionInProgress,
				"session %d is already in progress with another consultant", session.ID)
		}
	}

	if session.IsTeamSession || session.IsAnonymous() {
		if !candidate.HasAnyAgency() {
			v.log.Warn("consultant without agency tried to take session",
				"session_id", session.ID, "consultant_id", candidate.ID)
			return apierr.Forbidden(CodeConsultantWithoutAgency,
				"consultant %s is not assigned to any agency", candidate.ID)
		}
		return nil
	}

	if session.AgencyID == nil || !candidate.HasAgency(*session.AgencyID) {
		v.log.Warn("consultant agency does not match session agency",
			"session_id", session.ID, "consultant_id", candidate.ID)
		return apierr.Forbidden(CodeConsultantAgencyMismatch,
			"consultant %s is not assigned to the agency of session %d", candidate.ID, session.ID)
	}
	return nil
}

func (v *assignmentVerifier) VerifySessionIsNotInProgress(session *types.Session, candidate *types.Consultant) error {
	if session == nil || candidate == nil {
		return apierr.BadRequest("invalid_assignment", "session and consultant are required")
	}
	if session.Status == types.SessionStatusInProgress || session.ConsultantID != nil {
		return apierr.Conflict(CodeEnquiryAlreadyAssigned,
			"enquiry %d is already assigned to a consultant", session.ID)
	}
	return nil
}
