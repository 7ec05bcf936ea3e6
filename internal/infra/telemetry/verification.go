package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// VerificationMetrics counts verification attempts and their outcomes.
type VerificationMetrics struct {
	Attempts *prometheus.CounterVec
	Risk     *prometheus.CounterVec
}

// NewVerificationMetrics registers the verification collectors.
func NewVerificationMetrics(namespace string, reg prometheus.Registerer) (*VerificationMetrics, error) {
	if namespace == "" {
		namespace = "sentinel"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verification",
		Name:      "attempts_total",
		Help:      "Total verification attempts partitioned by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(attempts); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			attempts = already.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, fmt.Errorf("register attempts collector: %w", err)
		}
	}

	risk := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verification",
		Name:      "results_total",
		Help:      "Total completed verifications partitioned by risk level.",
	}, []string{"risk_level"})
	if err := reg.Register(risk); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			risk = already.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, fmt.Errorf("register results collector: %w", err)
		}
	}

	return &VerificationMetrics{Attempts: attempts, Risk: risk}, nil
}

// ObserveOutcome records one finished attempt.
func (m *VerificationMetrics) ObserveOutcome(outcome string, result *domain.VerificationResult) {
	if m == nil {
		return
	}
	if m.Attempts != nil {
		m.Attempts.WithLabelValues(outcome).Inc()
	}
	if result != nil && m.Risk != nil {
		m.Risk.WithLabelValues(string(result.RiskLevel)).Inc()
	}
}
