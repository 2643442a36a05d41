package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "fleetcare_"

// Result labels shared by callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	diagnoseRequests *prometheus.CounterVec
	diagnoseLatency  *prometheus.HistogramVec

	anomaliesTotal *prometheus.CounterVec

	caseTransitions *prometheus.CounterVec
	caseEscalations prometheus.Counter

	bookingsTotal *prometheus.CounterVec

	activityTotal  *prometheus.CounterVec
	alertsTotal    *prometheus.CounterVec
	riskScores     prometheus.Histogram
	reportExports  *prometheus.CounterVec
	notifyDelivery *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		diagnoseRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "diagnose_requests_total",
				Help: "Total diagnosis requests by result",
			},
			[]string{"result"},
		)
		diagnoseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "diagnose_latency_seconds",
				Help:    "Diagnosis latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		anomaliesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "anomalies_total",
				Help: "Total detected anomalies by severity",
			},
			[]string{"severity"},
		)

		caseTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "case_transitions_total",
				Help: "Total case stage transitions by target stage",
			},
			[]string{"stage"},
		)
		caseEscalations = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "case_escalations_total",
				Help: "Total cases escalated to human review",
			},
		)

		bookingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bookings_total",
				Help: "Total booking operations by result",
			},
			[]string{"result"},
		)

		activityTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "monitor_activities_total",
				Help: "Total recorded worker activities by worker",
			},
			[]string{"worker"},
		)
		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "monitor_alerts_total",
				Help: "Total behavior alerts by kind",
			},
			[]string{"kind"},
		)
		riskScores = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "monitor_risk_score",
				Help:    "Distribution of computed risk scores",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			},
		)
		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total security report exports by format and result",
			},
			[]string{"format", "result"},
		)
		notifyDelivery = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_delivery_total",
				Help: "Total owner notification deliveries by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			diagnoseRequests,
			diagnoseLatency,
			anomaliesTotal,
			caseTransitions,
			caseEscalations,
			bookingsTotal,
			activityTotal,
			alertsTotal,
			riskScores,
			reportExports,
			notifyDelivery,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveDiagnose records diagnosis request duration and result.
func ObserveDiagnose(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if diagnoseRequests != nil {
		diagnoseRequests.WithLabelValues(result).Inc()
	}
	if diagnoseLatency != nil {
		diagnoseLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncAnomaly increments the anomaly counter for a severity.
func IncAnomaly(severity string) {
	if severity == "" {
		severity = "unknown"
	}
	if anomaliesTotal != nil {
		anomaliesTotal.WithLabelValues(severity).Inc()
	}
}

// IncCaseTransition increments the transition counter for a target stage.
func IncCaseTransition(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	if caseTransitions != nil {
		caseTransitions.WithLabelValues(stage).Inc()
	}
	if stage == "escalated" && caseEscalations != nil {
		caseEscalations.Inc()
	}
}

// IncBooking increments the booking counter.
func IncBooking(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if bookingsTotal != nil {
		bookingsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveActivity records one scored worker activity.
func ObserveActivity(worker string, risk int, alertKind string) {
	if worker == "" {
		worker = "unknown"
	}
	if activityTotal != nil {
		activityTotal.WithLabelValues(worker).Inc()
	}
	if riskScores != nil {
		riskScores.Observe(float64(risk))
	}
	if alertKind != "" && alertsTotal != nil {
		alertsTotal.WithLabelValues(alertKind).Inc()
	}
}

// IncReportExport increments the export counter.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if reportExports != nil {
		reportExports.WithLabelValues(format, result).Inc()
	}
}

// IncNotifyDelivery increments the notification delivery counter.
func IncNotifyDelivery(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if notifyDelivery != nil {
		notifyDelivery.WithLabelValues(result).Inc()
	}
}
