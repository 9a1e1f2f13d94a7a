package envutil

import (
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("CB_INT", "12")
	t.Setenv("CB_BAD_INT", "x")
	t.Setenv("CB_BOOL", "on")
	t.Setenv("CB_DUR", "90s")
	t.Setenv("CB_STR", "  value ")

	if got := Int("CB_INT", 1); got != 12 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("CB_BAD_INT", 3); got != 3 {
		t.Fatalf("Int fallback=%d", got)
	}
	if !Bool("CB_BOOL", false) {
		t.Fatalf("Bool expected true")
	}
	if Bool("CB_MISSING_BOOL", false) {
		t.Fatalf("Bool default expected false")
	}
	if got := Duration("CB_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration=%s", got)
	}
	if got := String("CB_STR", "d"); got != "value" {
		t.Fatalf("String=%q", got)
	}
	if got := String("CB_MISSING_STR", "d"); got != "d" {
		t.Fatalf("String default=%q", got)
	}
}
