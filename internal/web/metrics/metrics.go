// Package metrics registers the web app's Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	signIns         *prometheus.CounterVec
	signInFailures  prometheus.Counter
	policyDecisions *prometheus.CounterVec
	sessionsEnded   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		signIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_web_sign_ins_total",
			Help: "Completed sign-ins by source (oidc, anonymous)",
		}, []string{"source"}),
		signInFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_web_sign_in_failures_total",
			Help: "OIDC callback failures",
		}),
		policyDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_web_policy_decisions_total",
			Help: "Policy evaluations by policy name and outcome",
		}, []string{"policy", "allowed"}),
		sessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_web_sessions_ended_total",
			Help: "Explicit logouts",
		}),
	}
}

func (m *Metrics) IncOidcSignIns()      { m.signIns.WithLabelValues("oidc").Inc() }
func (m *Metrics) IncAnonymousSignIns() { m.signIns.WithLabelValues("anonymous").Inc() }
func (m *Metrics) IncSignInFailures()   { m.signInFailures.Inc() }
func (m *Metrics) IncSessionsEnded()    { m.sessionsEnded.Inc() }

func (m *Metrics) ObservePolicyDecision(policy string, allowed bool) {
	m.policyDecisions.WithLabelValues(policy, strconv.FormatBool(allowed)).Inc()
}
