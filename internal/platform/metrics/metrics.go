package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the auth handoff and the
// verification workflow.
type Metrics struct {
	Logins              *prometheus.CounterVec
	Logouts             prometheus.Counter
	CasesStarted        prometheus.Counter
	CaseTransitions     *prometheus.CounterVec
	CasesFinished       *prometheus.CounterVec
	AuthRequestDuration *prometheus.HistogramVec
	AuditDropped        prometheus.Counter
}

// New creates and registers all metrics against reg. A nil registerer uses the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_logins_total",
			Help: "Login attempts by method (credentials, provider) and outcome",
		}, []string{"method", "outcome"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "trustid_logouts_total",
			Help: "Total number of explicit logouts",
		}),
		CasesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "trustid_cases_started_total",
			Help: "Total number of verification cases started",
		}),
		CaseTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_case_transitions_total",
			Help: "Stage transitions observed, labelled by the stage entered",
		}, []string{"stage"}),
		CasesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_cases_finished_total",
			Help: "Verification cases reaching a terminal stage",
		}, []string{"outcome"}),
		AuthRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustid_auth_request_duration_seconds",
			Help:    "Duration of calls to the verification service",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "trustid_audit_events_dropped_total",
			Help: "Audit events dropped because the publish buffer was full",
		}),
	}
}

// ObserveLogin records a login attempt outcome.
func (m *Metrics) ObserveLogin(method string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Logins.WithLabelValues(method, outcome).Inc()
}

// IncrementLogouts increments the logout counter by 1.
func (m *Metrics) IncrementLogouts() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// IncrementCasesStarted increments the started case counter by 1.
func (m *Metrics) IncrementCasesStarted() {
	if m == nil {
		return
	}
	m.CasesStarted.Inc()
}

// ObserveTransition records a stage entry; terminal stages also count towards
// the finished counter.
func (m *Metrics) ObserveTransition(stage string, terminal bool) {
	if m == nil {
		return
	}
	m.CaseTransitions.WithLabelValues(stage).Inc()
	if terminal {
		m.CasesFinished.WithLabelValues(stage).Inc()
	}
}

// ObserveAuthRequest records the duration of a verification service call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAuthRequest(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.AuthRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncrementAuditDropped counts an audit event lost to back-pressure.
func (m *Metrics) IncrementAuditDropped() {
	if m == nil {
		return
	}
	m.AuditDropped.Inc()
}
