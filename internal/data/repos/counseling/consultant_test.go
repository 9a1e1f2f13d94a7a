package counseling

import (
	"context"
	"testing"

	"github.com/yungbote/counselbridge-backend/internal/data/repos/testutil"
)

func TestConsultantRepo_FindByRocketChatID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewConsultantRepo(db, testutil.Logger(t))
	seeded := testutil.SeedConsultant(t, ctx, tx, 1, 2)

	got, err := repo.FindByRocketChatID(ctx, tx, seeded.RocketChatID)
	if err != nil {
		t.Fatalf("FindByRocketChatID: %v", err)
	}
	if got == nil || got.ID != seeded.ID || len(got.Agencies) != 2 {
		t.Fatalf("unexpected consultant %+v", got)
	}

	missing, err := repo.FindByRocketChatID(ctx, tx, "rc-system-bot")
	if err != nil || missing != nil {
		t.Fatalf("expected absent consultant, got %+v err=%v", missing, err)
	}

	if err := tx.Delete(seeded).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	deleted, err := repo.FindByRocketChatID(ctx, tx, seeded.RocketChatID)
	if err != nil || deleted != nil {
		t.Fatalf("deleted consultant must be absent, got %+v err=%v", deleted, err)
	}
}
