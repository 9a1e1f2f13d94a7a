package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMetrics_WritePrometheus(t *testing.T) {
	m := New()
	m.ObserveAPI("PUT", "/users/sessions/:sessionId/consultant/:consultantId", "200", 40*time.Millisecond)
	m.ObserveAssignment("assign_session", "NOTIFIED")
	m.ObserveAssignment("assign_session", "NOTIFIED")
	m.ObserveMembershipRemoval("rollback_failed")
	m.ObserveAsyncTask("assignment_email", errors.New("smtp"), time.Second)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`cb_assignments_total{operation="assign_session",state="NOTIFIED"} 2`,
		`cb_membership_removals_total{result="rollback_failed"} 1`,
		`cb_async_tasks_total{task="assignment_email",status="failed"} 1`,
		`cb_api_request_duration_seconds_bucket{method="PUT",route="/users/sessions/:sessionId/consultant/:consultantId",status="200",le="0.05"} 1`,
		"# TYPE cb_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if got := m.AssignmentCount("assign_session", "NOTIFIED"); got != 2 {
		t.Fatalf("AssignmentCount=%v", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAssignment("assign_session", "FAILED")
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}
