package domain

import "github.com/yungbote/counselbridge-backend/internal/domain/counseling"

type Session = counseling.Session
type SessionStatus = counseling.SessionStatus
type RegistrationType = counseling.RegistrationType
type SessionData = counseling.SessionData
type User = counseling.User
type Consultant = counseling.Consultant
type ConsultantAgency = counseling.ConsultantAgency
type ChatMember = counseling.ChatMember
type TenantContext = counseling.TenantContext
type AuthenticatedUser = counseling.AuthenticatedUser
type RequestMeta = counseling.RequestMeta
type DeletionWorkflowError = counseling.DeletionWorkflowError
type AskerDeletionWorkflow = counseling.AskerDeletionWorkflow
type DeletionTargetType = counseling.DeletionTargetType
type MembershipRepairTask = counseling.MembershipRepairTask
type RepairStatus = counseling.RepairStatus
type AssignmentState = counseling.AssignmentState
type StatisticsEvent = counseling.StatisticsEvent

const (
	SessionStatusInitial    = counseling.SessionStatusInitial
	SessionStatusNew        = counseling.SessionStatusNew
	SessionStatusInProgress = counseling.SessionStatusInProgress
	SessionStatusDone       = counseling.SessionStatusDone
	SessionStatusInArchive  = counseling.SessionStatusInArchive

	RegistrationTypeRegistered = counseling.RegistrationTypeRegistered
	RegistrationTypeAnonymous  = counseling.RegistrationTypeAnonymous

	RepairStatusPending   = counseling.RepairStatusPending
	RepairStatusResolved  = counseling.RepairStatusResolved
	RepairStatusAbandoned = counseling.RepairStatusAbandoned

	AssignmentValidated  = counseling.AssignmentValidated
	AssignmentPersisted  = counseling.AssignmentPersisted
	AssignmentRoomJoined = counseling.AssignmentRoomJoined
	AssignmentReconciled = counseling.AssignmentReconciled
	AssignmentNotified   = counseling.AssignmentNotified
	AssignmentFailed     = counseling.AssignmentFailed

	DeletionSourceAsker      = counseling.DeletionSourceAsker
	DeletionSourceConsultant = counseling.DeletionSourceConsultant
	DeletionTargetRocketChat = counseling.DeletionTargetRocketChat
	DeletionTargetDatabase   = counseling.DeletionTargetDatabase
	DeletionTargetKeycloak   = counseling.DeletionTargetKeycloak

	StatisticsEventAssignSession = counseling.StatisticsEventAssignSession
	StatisticsUserRoleConsultant = counseling.StatisticsUserRoleConsultant

	RoleUser                = counseling.RoleUser
	RoleAnonymous           = counseling.RoleAnonymous
	RoleConsultant          = counseling.RoleConsultant
	RoleGroupChatConsultant = counseling.RoleGroupChatConsultant
	RoleUserAdmin           = counseling.RoleUserAdmin
	RoleTechnical           = counseling.RoleTechnical
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Consultant{},
		&ConsultantAgency{},
		&Session{},
		&SessionData{},
		&MembershipRepairTask{},
	}
}
