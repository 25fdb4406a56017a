package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Audit logger for moderation actions
	Logger *zap.Logger

	messagesClassifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_classified_total",
			Help: "Total number of messages sent to the profanity classifier",
		},
		[]string{"verdict"},
	)

	offensesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offenses_recorded_total",
			Help: "Total number of offenses written to the ledger",
		},
		[]string{"action"},
	)

	classificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classification_duration_seconds",
			Help:    "Time spent waiting for the profanity classifier",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init() error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(messagesClassifiedTotal)
	prometheus.MustRegister(offensesRecordedTotal)
	prometheus.MustRegister(classificationDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}

// Audit returns the audit logger, a no-op one before Init.
func Audit() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}

// MetricsHandler serves the prometheus registry, mounted by the webhook server.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordClassification records one classifier verdict ("delete", "keep", "error").
func RecordClassification(verdict string) {
	messagesClassifiedTotal.WithLabelValues(verdict).Inc()
}

// RecordOffenseAction records one ledger write and the escalation taken.
func RecordOffenseAction(action string) {
	offensesRecordedTotal.WithLabelValues(action).Inc()
}

// StartClassification returns a function to record classification duration
func StartClassification() func(status string) {
	start := time.Now()
	return func(status string) {
		classificationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
