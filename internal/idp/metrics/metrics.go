// Package metrics registers the IdP's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	loginAttempts   *prometheus.CounterVec
	authCodesIssued prometheus.Counter
	tokenExchanges  *prometheus.CounterVec
	lockouts        prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		loginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_idp_login_attempts_total",
			Help: "Local login attempts by result (success, failure, locked)",
		}, []string{"result"}),
		authCodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_idp_auth_codes_issued_total",
			Help: "Authorization codes issued",
		}),
		tokenExchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_idp_token_exchanges_total",
			Help: "Token endpoint exchanges by result (success, invalid_grant, invalid_client)",
		}, []string{"result"}),
		lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_idp_account_lockouts_total",
			Help: "Accounts locked after repeated login failures",
		}),
	}
}

func (m *Metrics) ObserveLogin(result string)         { m.loginAttempts.WithLabelValues(result).Inc() }
func (m *Metrics) IncAuthCodesIssued()                { m.authCodesIssued.Inc() }
func (m *Metrics) ObserveTokenExchange(result string) { m.tokenExchanges.WithLabelValues(result).Inc() }
func (m *Metrics) IncLockouts()                       { m.lockouts.Inc() }
