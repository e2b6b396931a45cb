package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	TokensDiscovered prometheus.Counter
	TokensRemoved    *prometheus.CounterVec
	BuysTotal        prometheus.Counter
	PartialSells     prometheus.Counter
	FullSells        *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	RealizedProfit   prometheus.Counter
	RealizedLoss     prometheus.Counter
	TokensMonitored  prometheus.Gauge
	TokensTraded     prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered on
// the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "price_based_bot"
	}

	return &Metrics{
		TokensDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_discovered_total",
			Help:      "Total number of tokens accepted into monitoring",
		}),
		TokensRemoved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_removed_total",
			Help:      "Total number of tokens removed from monitoring by reason",
		}, []string{"reason"}),
		BuysTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "buys_total",
			Help:      "Total number of successful buys",
		}),
		PartialSells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "partial_sells_total",
			Help:      "Total number of successful half sells",
		}),
		FullSells: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "full_sells_total",
			Help:      "Total number of successful full sells by exit reason",
		}, []string{"reason"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "operation_errors_total",
			Help:      "Total number of swallowed failures by operation",
		}, []string{"op"}),
		RealizedProfit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "realized_profit_fiat_total",
			Help:      "Cumulative positive realized profit in fiat",
		}),
		RealizedLoss: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "realized_loss_fiat_total",
			Help:      "Cumulative realized loss in fiat (absolute value)",
		}),
		TokensMonitored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_monitored",
			Help:      "Current number of monitored tokens",
		}),
		TokensTraded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_traded",
			Help:      "Current size of the traded set",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PromSink adapts Metrics to the Sink interface.
type PromSink struct {
	m *Metrics
}

// NewPromSink creates a Sink backed by Prometheus metrics.
func NewPromSink(m *Metrics) *PromSink {
	return &PromSink{m: m}
}

func (p *PromSink) TokenDiscovered(string, string) {
	p.m.TokensDiscovered.Inc()
}

func (p *PromSink) EntryTaken(string, float64) {
	p.m.BuysTotal.Inc()
}

func (p *PromSink) PartialExit(string, float64) {
	p.m.PartialSells.Inc()
}

func (p *PromSink) FullExit(_ string, _ float64, profitFiat float64, reason string) {
	p.m.FullSells.WithLabelValues(reason).Inc()
	if profitFiat >= 0 {
		p.m.RealizedProfit.Add(profitFiat)
	} else {
		p.m.RealizedLoss.Add(-profitFiat)
	}
}

func (p *PromSink) TokenRemoved(_ string, reason string) {
	p.m.TokensRemoved.WithLabelValues(reason).Inc()
}

func (p *PromSink) OperationFailed(_ string, op, _ string) {
	p.m.OperationErrors.WithLabelValues(op).Inc()
}

func (p *PromSink) SetMonitored(n int) {
	p.m.TokensMonitored.Set(float64(n))
}

func (p *PromSink) SetTraded(n int) {
	p.m.TokensTraded.Set(float64(n))
}

var _ Sink = (*PromSink)(nil)
