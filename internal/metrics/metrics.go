package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inquiry outcomes.
const (
	InquiryStored   = "stored"
	InquiryDegraded = "degraded"
	InquiryRejected = "rejected"
	InquiryFailed   = "failed"
)

// Recorder records application metrics.
type Recorder interface {
	ObservePlannersServed(source string, count int)
	IncPlannerDecodeFailure()
	IncInquiry(outcome string)
	ObserveRequest(method, route string, status int)
}

type recorder struct {
	plannersServed  *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	inquiries       *prometheus.CounterVec
	requestsHandled *prometheus.CounterVec
}

// NewRecorder registers the application collectors on registry.
func NewRecorder(registry prometheus.Registerer) Recorder {
	factory := promauto.With(registry)

	return &recorder{
		plannersServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planners_served_total",
				Help: "Planner records returned to clients, by source",
			},
			[]string{"source"},
		),
		decodeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_decode_failures_total",
				Help: "Stored planner documents that failed to decode",
			},
		),
		inquiries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inquiries_total",
				Help: "Inquiry submissions by outcome",
			},
			[]string{"outcome"},
		),
		requestsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests handled, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (r *recorder) ObservePlannersServed(source string, count int) {
	r.plannersServed.WithLabelValues(source).Add(float64(count))
}

func (r *recorder) IncPlannerDecodeFailure() {
	r.decodeFailures.Inc()
}

func (r *recorder) IncInquiry(outcome string) {
	r.inquiries.WithLabelValues(outcome).Inc()
}

func (r *recorder) ObserveRequest(method, route string, status int) {
	r.requestsHandled.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) ObservePlannersServed(string, int) {}
func (nopRecorder) IncPlannerDecodeFailure() {}
func (nopRecorder) IncInquiry(string) {}
func (nopRecorder) ObserveRequest(string, string, int) {}
