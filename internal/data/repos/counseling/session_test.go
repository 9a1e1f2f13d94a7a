package counseling

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/counselbridge-backend/internal/data/dberr"
	"github.com/yungbote/counselbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/dbctx"
)

func TestSessionRepo_UpdateConsultantAndStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewSessionRepo(db, testutil.Logger(t))
	user := testutil.SeedUser(t, ctx, tx)
	consultant := testutil.SeedConsultant(t, ctx, tx, 42)
	session := testutil.SeedSession(t, ctx, tx, user.ID, 42, types.SessionStatusNew)

	stale := *session

	if err := repo.UpdateConsultantAndStatus(dbctx.Context{Ctx: ctx, Tx: tx}, session, &consultant.ID, types.SessionStatusInProgress); err != nil {
		t.Fatalf("UpdateConsultantAndStatus: %v", err)
	}
	if session.Version != stale.Version+1 || session.Status != types.SessionStatusInProgress {
		t.Fatalf("in-memory session not updated: %+v", session)
	}

	got, err := repo.GetByID(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsAssignedTo(consultant.ID) || got.Status != types.SessionStatusInProgress {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Consultant == nil || !got.Consultant.HasAgency(42) {
		t.Fatalf("expected consultant with agencies preloaded, got %+v", got.Consultant)
	}
	if got.User == nil || got.User.RcUserID != user.RcUserID {
		t.Fatalf("expected user preloaded, got %+v", got.User)
	}

	err = repo.UpdateConsultantAndStatus(dbctx.Context{Ctx: ctx, Tx: tx}, &stale, nil, types.SessionStatusNew)
	if !errors.Is(err, dberr.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion on stale write, got %v", err)
	}
}

func TestSessionRepo_Listing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewSessionRepo(db, testutil.Logger(t))
	user := testutil.SeedUser(t, ctx, tx)
	a := testutil.SeedSession(t, ctx, tx, user.ID, 7001, types.SessionStatusNew)
	b := testutil.SeedSession(t, ctx, tx, user.ID, 7001, types.SessionStatusDone)

	byUser, err := repo.ListByUserID(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("ListByUserID: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != a.ID || byUser[1].ID != b.ID {
		t.Fatalf("ListByUserID: unexpected %+v", byUser)
	}

	open, err := repo.ListByAgencyAndStatuses(ctx, tx, 7001, []types.SessionStatus{types.SessionStatusNew, types.SessionStatusInProgress})
	if err != nil {
		t.Fatalf("ListByAgencyAndStatuses: %v", err)
	}
	if len(open) != 1 || open[0].ID != a.ID {
		t.Fatalf("ListByAgencyAndStatuses: unexpected %+v", open)
	}

	if err := repo.Delete(ctx, tx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, tx, a.ID); err == nil {
		t.Fatalf("expected not found after delete")
	}
}
