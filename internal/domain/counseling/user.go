package counseling

import (
	"strings"
	"time"
)

// User is the advice seeker. ID is the Keycloak user id.
type User struct {
	ID        string    `gorm:"primaryKey;column:user_id" json:"id"`
	Username  string    `gorm:"column:username;not null" json:"username"`
	Email     string    `gorm:"column:email" json:"email"`
	RcUserID  string    `gorm:"column:rc_user_id;index" json:"rc_user_id"`
	TenantID  *int64    `gorm:"column:tenant_id;index" json:"tenant_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "user" }

const (
	RoleUser                = "user"
	RoleAnonymous           = "anonymous"
	RoleConsultant          = "consultant"
	RoleGroupChatConsultant = "group-chat-consultant"
	RoleUserAdmin           = "user-admin"
	RoleTechnical           = "technical"
)

// AuthenticatedUser is the caller of an operation.
type AuthenticatedUser struct {
	UserID   string
	Username string
	Roles    []string
}

func (u AuthenticatedUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsAdviceSeeker is true for registered and anonymous askers.
func (u AuthenticatedUser) IsAdviceSeeker() bool {
	return u.HasRole(RoleUser) || u.HasRole(RoleAnonymous)
}

func (u AuthenticatedUser) IsConsultant() bool {
	return u.HasRole(RoleConsultant)
}

// TenantContext is passed explicitly through every call that needs it.
type TenantContext struct {
	ID        int64
	Subdomain string
}

func (t TenantContext) IDPtr() *int64 {
	if t.ID == 0 {
		return nil
	}
	id := t.ID
	return &id
}

// RequestMeta carries audit data for statistics events.
type RequestMeta struct {
	URI     string
	Referer string
}

// ChatMember is one account in a chat room, fetched fresh on every read.
type ChatMember struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"`
}
