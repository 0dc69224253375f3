// Package metrics registers Prometheus metrics for the analytic pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

const (
	metricPrefix = "epe_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	trainingTotal   *prometheus.CounterVec
	trainingLatency *prometheus.HistogramVec
	modelRSquared   *prometheus.GaugeVec

	evaluationTotal      *prometheus.CounterVec
	deviationCompliance  *prometheus.CounterVec
	projectedEvaluations prometheus.Counter

	scanTotal         *prometheus.CounterVec
	scanLatency       *prometheus.HistogramVec
	opportunitiesSeen *prometheus.CounterVec

	readingsIngested *prometheus.CounterVec
)

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		trainingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "training_total",
				Help: "Baseline trainings by result",
			},
			[]string{"result"},
		)
		trainingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "training_latency_seconds",
				Help:    "Baseline training latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		modelRSquared = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "model_r_squared",
				Help: "R squared of the latest trained baseline",
			},
			[]string{"entity", "energy_source"},
		)
		evaluationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_total",
				Help: "Deviation evaluations by result",
			},
			[]string{"result"},
		)
		deviationCompliance = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "deviation_compliance_total",
				Help: "Evaluated periods by compliance class",
			},
			[]string{"compliance"},
		)
		projectedEvaluations = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_projected_total",
				Help: "Evaluations scored on a projected partial period",
			},
		)
		scanTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scan_total",
				Help: "Opportunity scans by result",
			},
			[]string{"result"},
		)
		scanLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "scan_latency_seconds",
				Help:    "Opportunity scan latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		opportunitiesSeen = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "opportunities_total",
				Help: "Opportunities found by issue type",
			},
			[]string{"issue_type"},
		)
		readingsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Meter readings ingested by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			trainingTotal,
			trainingLatency,
			modelRSquared,
			evaluationTotal,
			deviationCompliance,
			projectedEvaluations,
			scanTotal,
			scanLatency,
			opportunitiesSeen,
			readingsIngested,
		)
	})
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

func ObserveTraining(m *domain.BaselineModel, elapsed time.Duration, err error) {
	if trainingTotal == nil {
		return
	}
	r := result(err)
	trainingTotal.WithLabelValues(r).Inc()
	trainingLatency.WithLabelValues(r).Observe(elapsed.Seconds())
	if err == nil && m != nil {
		modelRSquared.WithLabelValues(m.EntityID, m.EnergySource).Set(m.RSquared)
	}
}

func ObserveEvaluation(res *domain.DeviationResult, err error) {
	if evaluationTotal == nil {
		return
	}
	evaluationTotal.WithLabelValues(result(err)).Inc()
	if err != nil || res == nil {
		return
	}
	deviationCompliance.WithLabelValues(string(res.Compliance)).Inc()
	if res.ProjectionApplied {
		projectedEvaluations.Inc()
	}
}

func ObserveScan(opps []domain.Opportunity, elapsed time.Duration, err error) {
	if scanTotal == nil {
		return
	}
	r := result(err)
	scanTotal.WithLabelValues(r).Inc()
	scanLatency.WithLabelValues(r).Observe(elapsed.Seconds())
	for _, o := range opps {
		opportunitiesSeen.WithLabelValues(o.IssueType.String()).Inc()
	}
}

func ObserveIngest(err error) {
	if readingsIngested == nil {
		return
	}
	readingsIngested.WithLabelValues(result(err)).Inc()
}
