package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.NewString(),
		Username: "asker-" + uuid.NewString()[:8],
		Email:    "asker@example.com",
		RcUserID: "rc-" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedConsultant(tb testing.TB, ctx context.Context, tx *gorm.DB, agencyIDs ...int64) *types.Consultant {
	tb.Helper()
	c := &types.Consultant{
		ID:           uuid.NewString(),
		Username:     "consultant-" + uuid.NewString()[:8],
		FirstName:    "Con",
		LastName:     "Sultant",
		Email:        "consultant@example.com",
		RocketChatID: "rc-" + uuid.NewString()[:8],
	}
	for _, agencyID := range agencyIDs {
		c.Agencies = append(c.Agencies, types.ConsultantAgency{AgencyID: agencyID})
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed consultant: %v", err)
	}
	return c
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, agencyID int64, status types.SessionStatus) *types.Session {
	tb.Helper()
	s := &types.Session{
		UserID:           userID,
		AgencyID:         &agencyID,
		GroupID:          "group-" + uuid.NewString()[:8],
		Status:           status,
		RegistrationType: types.RegistrationTypeRegistered,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
