package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware must run inside the request logger so c.Error has already been
// applied when the status is read.
func (m *ServerMetrics) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Response().Status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		return nil
	}
}

// Orders counts workflow outcomes. A nil *Orders is valid and records nothing.
type Orders struct {
	Placed           prometheus.Counter
	Cancelled        prometheus.Counter
	CheckoutFailures *prometheus.CounterVec
	StatusChanges    *prometheus.CounterVec
}

func NewOrders(reg prometheus.Registerer, service string) *Orders {
	o := &Orders{
		Placed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled by their owner or an admin.",
		}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkout_failures_total",
			Help:      "Rejected checkouts by reason.",
		}, []string{"reason"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_status_changes_total",
			Help:      "Order status transitions by target status.",
		}, []string{"to"}),
	}
	reg.MustRegister(o.Placed, o.Cancelled, o.CheckoutFailures, o.StatusChanges)
	return o
}

func (o *Orders) OrderPlaced() {
	if o != nil {
		o.Placed.Inc()
	}
}

func (o *Orders) OrderCancelled() {
	if o != nil {
		o.Cancelled.Inc()
	}
}

func (o *Orders) CheckoutFailed(reason string) {
	if o != nil {
		o.CheckoutFailures.WithLabelValues(reason).Inc()
	}
}

func (o *Orders) StatusChanged(to string) {
	if o != nil {
		o.StatusChanges.WithLabelValues(to).Inc()
	}
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
