package counseling

import (
	"time"

	"gorm.io/datatypes"
)

type RepairStatus string

const (
	RepairStatusPending   RepairStatus = "PENDING"
	RepairStatusResolved  RepairStatus = "RESOLVED"
	RepairStatusAbandoned RepairStatus = "ABANDONED"
)

// MembershipRepairTask records a consultant whose session was persisted as
// assigned but who could not be added to the session's chat room.
type MembershipRepairTask struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    int64          `gorm:"column:session_id;not null;index" json:"session_id"`
	GroupID      string         `gorm:"column:rc_group_id;not null" json:"group_id"`
	RocketChatID string         `gorm:"column:rc_user_id;not null" json:"rocket_chat_id"`
	ConsultantID string         `gorm:"column:consultant_id;not null;index" json:"consultant_id"`
	Reason       string         `gorm:"column:reason" json:"reason"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Status       RepairStatus   `gorm:"column:status;not null;index" json:"status"`
	LastError    string         `gorm:"column:last_error" json:"last_error,omitempty"`
	Details      datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MembershipRepairTask) TableName() string { return "membership_repair_task" }
