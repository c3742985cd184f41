// Package metrics exposes matching activity as Prometheus collectors on a
// private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

const namespace = "matchbook"

type Metrics struct {
	reg *prometheus.Registry

	submitted      *prometheus.CounterVec
	rejected       prometheus.Counter
	canceled       prometheus.Counter
	trades         prometheus.Counter
	tradedQuantity prometheus.Counter
	fillsPerOrder  prometheus.Histogram
	daysRolled     prometheus.Counter

	restingVolume  *prometheus.GaugeVec
	referencePrice prometheus.Gauge
	openOrders     prometheus.Gauge
}

// New registers every collector on a fresh registry. The instrument name
// is attached as a constant label.
func New(instrument string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := prometheus.Labels{"instrument": instrument}

	return &Metrics{
		reg: reg,
		submitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orders_submitted_total",
			Help:        "Orders accepted by the engine.",
			ConstLabels: labels,
		}, []string{"side", "kind"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orders_rejected_total",
			Help:        "Submissions rejected by validation.",
			ConstLabels: labels,
		}),
		canceled: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orders_canceled_total",
			Help:        "Resting orders removed by cancel.",
			ConstLabels: labels,
		}),
		trades: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "trades_total",
			Help:        "Individual fills.",
			ConstLabels: labels,
		}),
		tradedQuantity: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "traded_quantity_total",
			Help:        "Units exchanged across all fills.",
			ConstLabels: labels,
		}),
		fillsPerOrder: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "fills_per_order",
			Help:        "Fills generated by one submission.",
			Buckets:     prometheus.LinearBuckets(0, 1, 10),
			ConstLabels: labels,
		}),
		daysRolled: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "days_rolled_total",
			Help:        "Trading days closed.",
			ConstLabels: labels,
		}),
		restingVolume: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "resting_volume",
			Help:        "Remaining quantity resting per side.",
			ConstLabels: labels,
		}, []string{"side"}),
		referencePrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "reference_price",
			Help:        "Last traded price.",
			ConstLabels: labels,
		}),
		openOrders: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "open_orders",
			Help:        "Order records not yet reclaimed.",
			ConstLabels: labels,
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveSubmit(r core.SubmitReport) {
	m.submitted.WithLabelValues(r.Side.String(), r.Kind.String()).Inc()
	m.fillsPerOrder.Observe(float64(len(r.Fills)))
	for _, f := range r.Fills {
		m.trades.Inc()
		m.tradedQuantity.Add(float64(f.Quantity))
	}
}

func (m *Metrics) ObserveReject() { m.rejected.Inc() }

func (m *Metrics) ObserveCancel() { m.canceled.Inc() }

func (m *Metrics) ObserveDayRolled() { m.daysRolled.Inc() }

// SetBook records the current book gauges.
func (m *Metrics) SetBook(bidVolume, askVolume core.Quantity, price core.Price, open int) {
	m.restingVolume.WithLabelValues(core.SideBuy.String()).Set(float64(bidVolume))
	m.restingVolume.WithLabelValues(core.SideSell.String()).Set(float64(askVolume))
	m.referencePrice.Set(price.InexactFloat64())
	m.openOrders.Set(float64(open))
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
