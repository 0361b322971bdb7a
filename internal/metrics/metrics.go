package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful child process starts.",
		},
	)
	processStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of stops requested through the supervisor.",
		},
	)
	processExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "process",
			Name:      "exits_total",
			Help:      "Child process exits by exit code.",
		}, []string{"code"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "servermgr",
			Subsystem: "process",
			Name:      "current_state",
			Help:      "Current supervisor state (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
	outputLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "process",
			Name:      "output_lines_total",
			Help:      "Lines read from the child process.",
		}, []string{"stream"},
	)
	relayBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "relay",
			Name:      "batches_total",
			Help:      "Relay batch deliveries per channel, by result.",
		}, []string{"result"},
	)
	relayBuffered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "servermgr",
			Subsystem: "relay",
			Name:      "buffered_events",
			Help:      "Events waiting for the next relay flush.",
		},
	)
	resolveFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Channel resolution failures by failure code.",
		}, []string{"code"},
	)
	resolvedChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "servermgr",
			Subsystem: "resolver",
			Name:      "channels",
			Help:      "Number of live notification channels.",
		},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "command",
			Name:      "submitted_total",
			Help:      "Commands written to the child process, by source and result.",
		}, []string{"source", "result"},
	)
	triggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "servermgr",
			Subsystem: "command",
			Name:      "triggers_total",
			Help:      "Custom command triggers honoured by the cooldown matcher.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		processStarts, processStops, processExits, currentState, outputLines,
		relayBatches, relayBuffered, resolveFailures, resolvedChannels, commands, triggers,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart() {
	if regOK.Load() {
		processStarts.Inc()
	}
}

func IncStop() {
	if regOK.Load() {
		processStops.Inc()
	}
}

func IncExit(code int) {
	if regOK.Load() {
		processExits.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

func SetCurrentState(state string, active bool) {
	if regOK.Load() {
		var value float64
		if active {
			value = 1
		}
		currentState.WithLabelValues(state).Set(value)
	}
}

func IncOutputLine(stream string) {
	if regOK.Load() {
		outputLines.WithLabelValues(stream).Inc()
	}
}

func IncRelayBatch(ok bool) {
	if regOK.Load() {
		result := "ok"
		if !ok {
			result = "failed"
		}
		relayBatches.WithLabelValues(result).Inc()
	}
}

func SetRelayBuffered(n int) {
	if regOK.Load() {
		relayBuffered.Set(float64(n))
	}
}

func IncResolveFailure(code string) {
	if regOK.Load() {
		resolveFailures.WithLabelValues(code).Inc()
	}
}

func SetResolvedChannels(n int) {
	if regOK.Load() {
		resolvedChannels.Set(float64(n))
	}
}

func IncCommand(source string, ok bool) {
	if regOK.Load() {
		result := "ok"
		if !ok {
			result = "failed"
		}
		commands.WithLabelValues(source, result).Inc()
	}
}

func IncTrigger() {
	if regOK.Load() {
		triggers.Inc()
	}
}
