package counseling

import (
	"context"
	"testing"

	"github.com/yungbote/counselbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
)

func TestMembershipRepairRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewMembershipRepairRepo(db, testutil.Logger(t))
	first, err := repo.Create(ctx, tx, &types.MembershipRepairTask{SessionID: 1, GroupID: "G1", RocketChatID: "rc-1", ConsultantID: "c-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Status != types.RepairStatusPending {
		t.Fatalf("expected PENDING default, got %q", first.Status)
	}
	second, err := repo.Create(ctx, tx, &types.MembershipRepairTask{SessionID: 2, GroupID: "G2", RocketChatID: "rc-2", ConsultantID: "c-2"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	if err := repo.UpdateFields(ctx, tx, first.ID, map[string]interface{}{"status": types.RepairStatusResolved}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	pending, err := repo.ListPending(ctx, tx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	for _, p := range pending {
		if p.ID == first.ID {
			t.Fatalf("resolved task must not be pending")
		}
	}
	found := false
	for _, p := range pending {
		if p.ID == second.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected second task pending, got %+v", pending)
	}
}
