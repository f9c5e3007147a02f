package social

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_login_total",
			Help: "Social login callbacks by provider and outcome (success, failure).",
		},
		[]string{"provider", "outcome"},
	)
	loginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_login_failures_total",
			Help: "Failed social login callbacks by provider and failure kind.",
		},
		[]string{"provider", "kind"},
	)
	accountsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_accounts_resolved_total",
			Help: "Account resolutions by outcome (matched, linked, created).",
		},
		[]string{"outcome"},
	)
)

// RegisterMetrics registra los collectors en reg (idempotente).
func RegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		for _, c := range []prometheus.Collector{loginTotal, loginFailures, accountsResolved} {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	})
}
