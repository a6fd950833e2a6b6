package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	ServiceName string
	// Registry defaults to a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
}

// InitMetrics builds an otel MeterProvider exporting through Prometheus, sets
// it as the global provider, and returns the /metrics handler for the same
// registry.
func InitMetrics(cfg MetricsConfig) (*sdkmetric.MeterProvider, *prometheus.Registry, http.Handler, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	return provider, reg, handler, nil
}

// LedgerMetrics counts committed ledger mutations.
type LedgerMetrics struct {
	invoices      prometheus.Counter
	billed        prometheus.Counter
	payments      *prometheus.CounterVec
	paymentAmount prometheus.Histogram
	credit        prometheus.Counter
	resets        prometheus.Counter
	resetPayments prometheus.Counter
	storeErrors   *prometheus.CounterVec
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		invoices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "invoices_generated_total",
			Help:      "Invoices created by generation runs.",
		}),
		billed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "billed_amount_total",
			Help:      "Sum of billed amounts of generated invoices.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payments_recorded_total",
			Help:      "Payments recorded, by method.",
		}, []string{"method"}),
		paymentAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "payment_amount",
			Help:      "Distribution of recorded payment amounts.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		credit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "credit_recorded_amount_total",
			Help:      "Overpayment amounts held as contract credit.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payment_resets_total",
			Help:      "Contract payment resets.",
		}),
		resetPayments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payments_removed_total",
			Help:      "Payments removed by resets.",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "store_errors_total",
			Help:      "Ledger store failures, by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.invoices, m.billed, m.payments, m.paymentAmount, m.credit, m.resets, m.resetPayments, m.storeErrors)
	return m
}

func (m *LedgerMetrics) InvoicesGenerated(count int, billed decimal.Decimal) {
	m.invoices.Add(float64(count))
	m.billed.Add(billed.InexactFloat64())
}

func (m *LedgerMetrics) PaymentRecorded(method string, amount decimal.Decimal) {
	m.payments.WithLabelValues(method).Inc()
	m.paymentAmount.Observe(amount.InexactFloat64())
}

func (m *LedgerMetrics) CreditRecorded(amount decimal.Decimal) {
	m.credit.Add(amount.InexactFloat64())
}

func (m *LedgerMetrics) PaymentsReset(removed int) {
	m.resets.Inc()
	m.resetPayments.Add(float64(removed))
}

func (m *LedgerMetrics) StoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}
