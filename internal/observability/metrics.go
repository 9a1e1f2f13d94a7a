package observability

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/platform/envutil"
)

type Metrics struct {
	apiRequests      *CounterVec
	apiLatency       *HistogramVec
	apiInflight      *Gauge
	assignments      *CounterVec
	membershipOps    *CounterVec
	repairTasks      *CounterVec
	asyncTasks       *CounterVec
	asyncTaskLatency *HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when metrics are disabled.
// Every method is safe to call on nil.
func Current() *Metrics {
	return instance
}

func Init() *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New builds an unregistered set, used directly by tests.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cb_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cb_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight:   NewGauge("cb_api_inflight_requests", "In-flight API requests."),
		assignments:   NewCounterVec("cb_assignments_total", "Assignment attempts by operation and final state.", []string{"operation", "state"}),
		membershipOps: NewCounterVec("cb_membership_removals_total", "Room membership removal batches by result.", []string{"result"}),
		repairTasks:   NewCounterVec("cb_membership_repair_tasks_total", "Membership repair task transitions by status.", []string{"status"}),
		asyncTasks:    NewCounterVec("cb_async_tasks_total", "Background tasks by name and status.", []string{"task", "status"}),
		asyncTaskLatency: NewHistogramVec(
			"cb_async_task_duration_seconds",
			"Background task duration in seconds by name.",
			[]string{"task"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.assignments,
		m.membershipOps,
		m.repairTasks,
		m.asyncTasks,
		m.asyncTaskLatency,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveAssignment counts one assignment attempt by the state it ended in.
func (m *Metrics) ObserveAssignment(operation, state string) {
	if m == nil {
		return
	}
	m.assignments.Inc(operation, state)
}

// ObserveMembershipRemoval takes "ok", "rolled_back" or "rollback_failed".
func (m *Metrics) ObserveMembershipRemoval(result string) {
	if m == nil {
		return
	}
	m.membershipOps.Inc(result)
}

func (m *Metrics) ObserveRepairTask(status string) {
	if m == nil {
		return
	}
	m.repairTasks.Inc(status)
}

func (m *Metrics) ObserveAsyncTask(task string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.asyncTasks.Inc(task, status)
	m.asyncTaskLatency.Observe(dur.Seconds(), task)
}

func (m *Metrics) AssignmentCount(operation, state string) float64 {
	if m == nil {
		return 0
	}
	return m.assignments.Value(operation, state)
}
