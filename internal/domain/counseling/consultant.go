package counseling

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Consultant struct {
	ID             string             `gorm:"primaryKey;column:consultant_id" json:"id"`
	Username       string             `gorm:"column:username;not null" json:"username"`
	FirstName      string             `gorm:"column:first_name" json:"first_name"`
	LastName       string             `gorm:"column:last_name" json:"last_name"`
	Email          string             `gorm:"column:email" json:"email"`
	RocketChatID   string             `gorm:"column:rc_user_id;index" json:"rocket_chat_id"`
	TeamConsultant bool               `gorm:"column:is_team_consultant;not null;default:false" json:"team_consultant"`
	TenantID       *int64             `gorm:"column:tenant_id;index" json:"tenant_id,omitempty"`
	Agencies       []ConsultantAgency `gorm:"foreignKey:ConsultantID;references:ID" json:"agencies,omitempty"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}

func (Consultant) TableName() string { return "consultant" }

func (c *Consultant) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasAgency reports an active affiliation with agencyID.
func (c *Consultant) HasAgency(agencyID int64) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Agencies {
		if a.AgencyID == agencyID && !a.DeletedAt.Valid {
			return true
		}
	}
	return false
}

func (c *Consultant) HasAnyAgency() bool {
	if c == nil {
		return false
	}
	for _, a := range c.Agencies {
		if !a.DeletedAt.Valid {
			return true
		}
	}
	return false
}

// ConsultantAgency is the consultant to agency association.
type ConsultantAgency struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ConsultantID string         `gorm:"column:consultant_id;not null;index" json:"consultant_id"`
	AgencyID     int64          `gorm:"column:agency_id;not null;index" json:"agency_id"`
	TenantID     *int64         `gorm:"column:tenant_id" json:"tenant_id,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ConsultantAgency) TableName() string { return "consultant_agency" }
