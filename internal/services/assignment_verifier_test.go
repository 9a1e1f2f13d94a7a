package services

import (
	"net/http"
	"testing"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

func TestVerifyPreconditionsForAssignment(t *testing.T) {
	v := NewAssignmentVerifier(logger.NewNop())

	inProgressWith := func(consultantID string) *types.Session {
		s := newSession(1, types.SessionStatusInProgress, 42, "G1")
		s.ConsultantID = strPtr(consultantID)
		return s
	}
	team := newSession(2, types.SessionStatusNew, 42, "G2")
	team.IsTeamSession = true
	anonymous := newSession(3, types.SessionStatusNew, 42, "G3")
	anonymous.RegistrationType = types.RegistrationTypeAnonymous

	cases := []struct {
		name       string
		session    *types.Session
		candidate  *types.Consultant
		allow      bool
		wantStatus int
		wantCode   string
	}{
		{name: "new_matching_agency", session: newSession(1, types.SessionStatusNew, 42, "G1"), candidate: newConsultant("c1", "rc1", 42)},
		{name: "in_progress_other_consultant", session: inProgressWith("c1"), candidate: newConsultant("c2", "rc2", 42), wantStatus: http.StatusConflict, wantCode: CodeSessionInProgress},
		{name: "in_progress_other_consultant_allowed", session: inProgressWith("c1"), candidate: newConsultant("c2", "rc2", 42), allow: true},
		{name: "in_progress_same_consultant", session: inProgressWith("c1"), candidate: newConsultant("c1", "rc1", 42)},
		{name: "done_not_assignable", session: newSession(1, types.SessionStatusDone, 42, "G1"), candidate: newConsultant("c1", "rc1", 42), allow: true, wantStatus: http.StatusConflict, wantCode: CodeSessionNotAssignable},
		{name: "initial_not_assignable", session: newSession(1, types.SessionStatusInitial, 42, "G1"), candidate: newConsultant("c1", "rc1", 42), wantStatus: http.StatusConflict, wantCode: CodeSessionNotAssignable},
		{name: "agency_mismatch", session: newSession(1, types.SessionStatusNew, 42, "G1"), candidate: newConsultant("c1", "rc1", 7), wantStatus: http.StatusForbidden, wantCode: CodeConsultantAgencyMismatch},
		{name: "team_session_other_agency", session: team, candidate: newConsultant("c1", "rc1", 7)},
		{name: "team_session_no_agency", session: team, candidate: newConsultant("c1", "rc1"), wantStatus: http.StatusForbidden, wantCode: CodeConsultantWithoutAgency},
		{name: "anonymous_other_agency", session: anonymous, candidate: newConsultant("c1", "rc1", 7)},
		{name: "nil_candidate", session: newSession(1, types.SessionStatusNew, 42, "G1"), wantStatus: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.VerifyPreconditionsForAssignment(tc.session, tc.candidate, tc.allow)
			if tc.wantStatus == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected status %d, got nil", tc.wantStatus)
			}
			if got := apierr.StatusOf(err); got != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d (%v)", tc.wantStatus, got, err)
			}
			if tc.wantCode != "" && apierr.CodeOf(err) != tc.wantCode {
				t.Fatalf("code: want=%q got=%q", tc.wantCode, apierr.CodeOf(err))
			}
		})
	}
}

func TestVerifyPreconditionsForAssignment_RevokedAgencyDoesNotCount(t *testing.T) {
	v := NewAssignmentVerifier(logger.NewNop())
	candidate := newConsultant("c1", "rc1", 42)
	candidate.Agencies[0].DeletedAt.Valid = true

	err := v.VerifyPreconditionsForAssignment(newSession(1, types.SessionStatusNew, 42, "G1"), candidate, false)
	if !apierr.IsForbidden(err) {
		t.Fatalf("expected Forbidden for revoked affiliation, got %v", err)
	}
}

func TestVerifySessionIsNotInProgress(t *testing.T) {
	v := NewAssignmentVerifier(logger.NewNop())
	candidate := newConsultant("c1", "rc1", 42)

	if err := v.VerifySessionIsNotInProgress(newSession(1, types.SessionStatusNew, 42, "G1"), candidate); err != nil {
		t.Fatalf("new enquiry: unexpected error %v", err)
	}

	inProgress := newSession(1, types.SessionStatusInProgress, 42, "G1")
	err := v.VerifySessionIsNotInProgress(inProgress, candidate)
	if !apierr.IsConflict(err) || apierr.CodeOf(err) != CodeEnquiryAlreadyAssigned {
		t.Fatalf("in progress: expected enquiry_already_assigned conflict, got %v", err)
	}

	assigned := newSession(1, types.SessionStatusNew, 42, "G1")
	assigned.ConsultantID = strPtr("c9")
	if err := v.VerifySessionIsNotInProgress(assigned, candidate); !apierr.IsConflict(err) {
		t.Fatalf("assigned: expected conflict, got %v", err)
	}
}
