package services

import (
	"context"
	"testing"
	"time"
)

func TestLocalRoomLocker_SerializesSameRoom(t *testing.T) {
	locker := NewLocalRoomLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "G1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	other, err := locker.Lock(ctx, "G2")
	if err != nil {
		t.Fatalf("Lock other room: %v", err)
	}
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, "G1"); err == nil {
		t.Fatalf("expected second lock on G1 to wait until ctx deadline")
	}

	unlock()
	unlock()
	again, err := locker.Lock(ctx, "G1")
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	again()
}
