package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "sieve_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_decisions",
	Help: "Number of moderation decisions, by event type and decision kind",
}, []string{"type", "kind"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_actions",
	Help: "Number of enforcement and configuration actions attempted, by outcome",
}, []string{"action", "outcome"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_commands",
	Help: "Number of commands handled, by outcome",
}, []string{"command", "outcome"})

var logDeliveryErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sieve_log_delivery_errors",
	Help: "Number of moderation log entries which failed delivery to a notifier",
})
