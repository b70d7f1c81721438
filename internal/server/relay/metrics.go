package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "gophboard"
	relaySubsystem   = "relay"
)

// Причины отброшенных сообщений (label reason)
const (
	dropRateLimited  = "rate_limited"
	dropBadSender    = "bad_sender"
	dropDecode       = "decode"
	dropUnknownType  = "unknown_type"
	dropSlowConsumer = "slow_consumer"
)

// Metrics метрики relay-сервера.
//
// Регистрируются в переданном Registerer, в тестах - в отдельном
// prometheus.NewRegistry().
type Metrics struct {
	// Connections текущее число WebSocket-соединений
	Connections prometheus.Gauge

	// Rooms текущее число загруженных комнат
	Rooms prometheus.Gauge

	// MessagesTotal принятые сообщения. Labels: type
	MessagesTotal *prometheus.CounterVec

	// DroppedTotal отброшенные сообщения. Labels: reason
	DroppedTotal *prometheus.CounterVec

	// SnapshotsTotal записи снимков комнат. Labels: result (ok, error)
	SnapshotsTotal *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики relay.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: relaySubsystem,
			Name:      "connections",
			Help:      "Number of open relay WebSocket connections",
		}),
		Rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: relaySubsystem,
			Name:      "rooms",
			Help:      "Number of rooms loaded in memory",
		}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: relaySubsystem,
			Name:      "messages_total",
			Help:      "Relay messages accepted by type",
		}, []string{"type"}),
		DroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: relaySubsystem,
			Name:      "dropped_total",
			Help:      "Relay messages dropped by reason",
		}, []string{"reason"}),
		SnapshotsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: relaySubsystem,
			Name:      "snapshots_total",
			Help:      "Room snapshot writes by result",
		}, []string{"result"}),
	}
}
