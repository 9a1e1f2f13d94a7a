package counseling

import "time"

type SessionStatus string

const (
	SessionStatusInitial    SessionStatus = "INITIAL"
	SessionStatusNew        SessionStatus = "NEW"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusDone       SessionStatus = "DONE"
	SessionStatusInArchive  SessionStatus = "IN_ARCHIVE"
)

type RegistrationType string

const (
	RegistrationTypeRegistered RegistrationType = "REGISTERED"
	RegistrationTypeAnonymous  RegistrationType = "ANONYMOUS"
)

// Session is one counseling case. Consultant and status change only through
// the assignment services; Version guards every such write.
type Session struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           string           `gorm:"column:user_id;not null;index" json:"user_id"`
	User             *User            `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	ConsultantID     *string          `gorm:"column:consultant_id;index" json:"consultant_id,omitempty"`
	Consultant       *Consultant      `gorm:"foreignKey:ConsultantID;references:ID" json:"consultant,omitempty"`
	AgencyID         *int64           `gorm:"column:agency_id;index" json:"agency_id,omitempty"`
	GroupID          string           `gorm:"column:rc_group_id;index" json:"group_id,omitempty"`
	Status           SessionStatus    `gorm:"column:status;not null;index" json:"status"`
	RegistrationType RegistrationType `gorm:"column:registration_type;not null;default:'REGISTERED'" json:"registration_type"`
	IsTeamSession    bool             `gorm:"column:is_team_session;not null;default:false" json:"is_team_session"`
	ConsultingTypeID int              `gorm:"column:consulting_type;not null;default:0" json:"consulting_type"`
	TenantID         *int64           `gorm:"column:tenant_id;index" json:"tenant_id,omitempty"`
	Version          int              `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string { return "session" }

func (s *Session) HasGroup() bool {
	return s != nil && s.GroupID != ""
}

func (s *Session) IsAnonymous() bool {
	return s != nil && s.RegistrationType == RegistrationTypeAnonymous
}

// IsAssignedTo reports whether consultantID is the current consultant.
func (s *Session) IsAssignedTo(consultantID string) bool {
	if s == nil || s.ConsultantID == nil || consultantID == "" {
		return false
	}
	return *s.ConsultantID == consultantID
}

func (s *Session) AgencyMatches(agencyID int64) bool {
	return s != nil && s.AgencyID != nil && *s.AgencyID == agencyID
}

// SessionData holds the per-session key/value registration answers.
type SessionData struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64  `gorm:"column:session_id;not null;index" json:"session_id"`
	Key       string `gorm:"column:key_name;not null" json:"key"`
	Value     string `gorm:"column:value" json:"value"`
}

func (SessionData) TableName() string { return "session_data" }
