package deviation

import (
	"fmt"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// Summary is the energy performance indicator over a series of evaluations.
type Summary struct {
	Periods             int                       `json:"periods"`
	ProjectedPeriods    int                       `json:"projected_periods"`
	TotalActualKWh      float64                   `json:"total_actual_kwh"`
	TotalPredictedKWh   float64                   `json:"total_predicted_kwh"`
	CumulativeDeviation float64                   `json:"cumulative_deviation_percent"`
	MeanDeviation       float64                   `json:"mean_deviation_percent"`
	MeanConfidence      float64                   `json:"mean_confidence"`
	OnTargetShare       float64                   `json:"on_target_share"`
	ByCompliance        map[domain.Compliance]int `json:"by_compliance"`
	Compliance          domain.Compliance         `json:"compliance"`
}

// EvaluateSeries evaluates every aggregate and summarizes the series. The
// cumulative deviation is classified with the same thresholds as single periods.
func (e *Engine) EvaluateSeries(model *domain.BaselineModel, aggs []domain.Aggregate) ([]domain.DeviationResult, Summary, error) {
	results := make([]domain.DeviationResult, 0, len(aggs))
	sum := Summary{ByCompliance: map[domain.Compliance]int{}}
	var devTotal, confTotal float64
	for _, agg := range aggs {
		res, err := e.Evaluate(model, agg)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("period %s: %w", agg.IntervalStart.Format("2006-01-02T15:04"), err)
		}
		results = append(results, *res)

		sum.Periods++
		if res.ProjectionApplied {
			sum.ProjectedPeriods++
		}
		sum.TotalActualKWh += res.ActualUsed
		sum.TotalPredictedKWh += res.Predicted
		sum.ByCompliance[res.Compliance]++
		devTotal += res.DeviationPercent
		confTotal += res.Confidence
	}
	if sum.Periods == 0 {
		return results, sum, nil
	}

	n := float64(sum.Periods)
	sum.MeanDeviation = devTotal / n
	sum.MeanConfidence = confTotal / n
	sum.OnTargetShare = float64(sum.ByCompliance[domain.ComplianceOnTarget]+sum.ByCompliance[domain.ComplianceExcellent]) / n
	sum.CumulativeDeviation = Percent(sum.TotalActualKWh, sum.TotalPredictedKWh)
	sum.Compliance = Classify(sum.CumulativeDeviation)
	return results, sum, nil
}
