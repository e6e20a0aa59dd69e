// Package metrics описывает Prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics набор коллекторов сервиса.
type Metrics struct {
	LoginAttempts   *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	GuardDecisions  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg. В тестах передаётся prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userprefs_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userprefs_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userprefs_guard_decisions_total",
			Help: "Access guard decisions by guard and outcome.",
		}, []string{"guard", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userprefs_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Login учитывает попытку входа. Nil-приёмник допустим.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// Registration учитывает попытку регистрации.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// Guard учитывает решение guard'а.
func (m *Metrics) Guard(guard, outcome string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(guard, outcome).Inc()
}
