package counseling

import "time"

type DeletionSourceType string

const (
	DeletionSourceAsker      DeletionSourceType = "ASKER"
	DeletionSourceConsultant DeletionSourceType = "CONSULTANT"
)

type DeletionTargetType string

const (
	DeletionTargetRocketChat DeletionTargetType = "ROCKET_CHAT"
	DeletionTargetDatabase   DeletionTargetType = "DATABASE"
	DeletionTargetKeycloak   DeletionTargetType = "KEYCLOAK"
)

// DeletionWorkflowError is one accumulated, non-fatal failure of a deletion step.
type DeletionWorkflowError struct {
	SourceType DeletionSourceType `json:"source_type"`
	TargetType DeletionTargetType `json:"target_type"`
	Identifier string             `json:"identifier"`
	Reason     string             `json:"reason"`
	Timestamp  time.Time          `json:"timestamp"`
}

// AssignmentState tracks how far one assignment attempt got.
type AssignmentState string

const (
	AssignmentValidated  AssignmentState = "VALIDATED"
	AssignmentPersisted  AssignmentState = "PERSISTED"
	AssignmentRoomJoined AssignmentState = "ROOM_JOINED"
	AssignmentReconciled AssignmentState = "RECONCILED"
	AssignmentNotified   AssignmentState = "NOTIFIED"
	AssignmentFailed     AssignmentState = "FAILED"
)

const (
	StatisticsEventAssignSession = "ASSIGN_SESSION"
	StatisticsUserRoleConsultant = "CONSULTANT"
)

// StatisticsEvent is the audit record published after an assignment.
type StatisticsEvent struct {
	EventType      string    `json:"eventType"`
	UserID         string    `json:"userId"`
	UserRole       string    `json:"userRole"`
	SessionID      int64     `json:"sessionId"`
	RequestURI     string    `json:"requestUri,omitempty"`
	RequestReferer string    `json:"requestReferer,omitempty"`
	RequestUserID  string    `json:"requestUserId,omitempty"`
	TenantID       *int64    `json:"tenantId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AskerDeletionWorkflow carries the asker being deleted and the failures
// collected along the way.
type AskerDeletionWorkflow struct {
	User   *User
	Errors []DeletionWorkflowError
}

func (w *AskerDeletionWorkflow) AddError(target DeletionTargetType, identifier, reason string) {
	w.Errors = append(w.Errors, DeletionWorkflowError{
		SourceType: DeletionSourceAsker,
		TargetType: target,
		Identifier: identifier,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})
}
