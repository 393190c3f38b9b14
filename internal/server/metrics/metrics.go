// Package metrics exposes server activity to Prometheus.
//
// All methods are safe on a nil *Metrics, which turns instrumentation off.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LabelCommand  = "command"
	LabelStatus   = "status"
	LabelRegistry = "registry"
	LabelState    = "state"
)

// Registry label values.
const (
	RegistryUsers     = "users"
	RegistryDocuments = "documents"
)

type Metrics struct {
	sessionsActive     prometheus.Gauge
	commandsTotal      *prometheus.CounterVec
	casConflictsTotal  *prometheus.CounterVec
	sectionLocksActive prometheus.Gauge
	chatAddresses      prometheus.Counter
	recoveriesTotal    *prometheus.CounterVec
}

// New creates the server metrics and registers them with registry. With a
// nil registry the collectors are created but not registered.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "turing",
			Name:      "sessions_active",
			Help:      "Number of connected client sessions",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turing",
			Name:      "commands_total",
			Help:      "Commands handled, by command and reply status",
		}, []string{LabelCommand, LabelStatus}),
		casConflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turing",
			Name:      "cas_conflicts_total",
			Help:      "Compare-and-replace attempts lost to a concurrent update",
		}, []string{LabelRegistry}),
		sectionLocksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "turing",
			Name:      "section_locks_active",
			Help:      "Number of sections currently being edited",
		}),
		chatAddresses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turing",
			Name:      "chat_addresses_allocated_total",
			Help:      "Chat multicast addresses handed out",
		}),
		recoveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turing",
			Name:      "recoveries_total",
			Help:      "Sessions cleaned up after termination, by the state they ended in",
		}, []string{LabelState}),
	}

	if registry != nil {
		registry.MustRegister(
			m.sessionsActive,
			m.commandsTotal,
			m.casConflictsTotal,
			m.sectionLocksActive,
			m.chatAddresses,
			m.recoveriesTotal,
		)
	}
	return m
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// CommandHandled counts one reply. Non-negative statuses carry counts and
// are all recorded as "ok".
func (m *Metrics) CommandHandled(command string, status int) {
	if m == nil {
		return
	}
	label := "ok"
	if status < 0 {
		label = strconv.Itoa(status)
	}
	m.commandsTotal.WithLabelValues(command, label).Inc()
}

func (m *Metrics) Conflict(registry string) {
	if m == nil {
		return
	}
	m.casConflictsTotal.WithLabelValues(registry).Inc()
}

// ConflictHook returns a callback counting conflicts of one registry.
func (m *Metrics) ConflictHook(registry string) func() {
	return func() { m.Conflict(registry) }
}

func (m *Metrics) SectionLocked() {
	if m == nil {
		return
	}
	m.sectionLocksActive.Inc()
}

func (m *Metrics) SectionReleased() {
	if m == nil {
		return
	}
	m.sectionLocksActive.Dec()
}

func (m *Metrics) ChatAddressAllocated() {
	if m == nil {
		return
	}
	m.chatAddresses.Inc()
}

func (m *Metrics) Recovered(state string) {
	if m == nil {
		return
	}
	m.recoveriesTotal.WithLabelValues(state).Inc()
}
