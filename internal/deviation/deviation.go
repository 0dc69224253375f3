// Package deviation scores actual consumption against a baseline model and
// classifies ISO 50001 compliance.
package deviation

import (
	"math"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

type Config struct {
	// CompletenessHours is the coverage, per 24 hours of period, below which an
	// incomplete period is projected to a full-period equivalent.
	CompletenessHours float64
	// PartialConfidence applies to projected periods.
	PartialConfidence float64
	// NearCompleteConfidence applies to incomplete periods above the threshold,
	// which are scored unprojected.
	NearCompleteConfidence float64
}

func DefaultConfig() Config {
	return Config{
		CompletenessHours:      22,
		PartialConfidence:      0.6,
		NearCompleteConfidence: 0.9,
	}
}

// Engine evaluates aggregates against baseline models. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.CompletenessHours <= 0 {
		cfg.CompletenessHours = def.CompletenessHours
	}
	if cfg.PartialConfidence <= 0 || cfg.PartialConfidence >= 1 {
		cfg.PartialConfidence = def.PartialConfidence
	}
	if cfg.NearCompleteConfidence <= 0 || cfg.NearCompleteConfidence > 1 {
		cfg.NearCompleteConfidence = def.NearCompleteConfidence
	}
	return &Engine{cfg: cfg}
}

// Predict evaluates the model on the aggregate's driver means, in model order.
func Predict(model *domain.BaselineModel, agg domain.Aggregate) (float64, error) {
	predicted := model.Intercept
	for _, term := range model.Terms() {
		v, ok := agg.DriverMeans[term.Driver]
		if !ok {
			return 0, &domain.DriverMismatchError{Driver: term.Driver}
		}
		predicted += term.Coefficient * v
	}
	return predicted, nil
}

// ProjectPartial scales consumption observed over hoursCovered to periodHours.
func ProjectPartial(raw, hoursCovered, periodHours float64) float64 {
	return raw / hoursCovered * periodHours
}

// Evaluate runs one evaluation through received, projected (partial periods
// only), scored and classified.
func (e *Engine) Evaluate(model *domain.BaselineModel, agg domain.Aggregate) (*domain.DeviationResult, error) {
	if model == nil {
		return nil, domain.ErrModelNotFound
	}
	res := &domain.DeviationResult{
		ModelID:      model.ID,
		ModelVersion: model.Version,
		EntityID:     agg.EntityID,
		EnergySource: agg.EnergySource,
		PeriodStart:  agg.IntervalStart,
		PeriodHours:  agg.PeriodHours(),
		HoursCovered: agg.HoursCovered,
		ActualRaw:    agg.TotalEnergyKWh,
		ActualUsed:   agg.TotalEnergyKWh,
		Confidence:   1.0,
		Stage:        domain.StageReceived,
	}
	if res.PeriodHours <= 0 {
		res.PeriodHours = 24
	}

	if !agg.IsComplete {
		if agg.HoursCovered <= 0 {
			return res, domain.ErrNoCoverage
		}
		threshold := e.cfg.CompletenessHours / 24 * res.PeriodHours
		if agg.HoursCovered < threshold {
			projected := ProjectPartial(agg.TotalEnergyKWh, agg.HoursCovered, res.PeriodHours)
			res.ActualProjected = &projected
			res.ActualUsed = projected
			res.ProjectionApplied = true
			res.Confidence = e.cfg.PartialConfidence
			res.Stage = domain.StageProjected
		} else {
			res.Confidence = e.cfg.NearCompleteConfidence
		}
	}

	predicted, err := Predict(model, agg)
	if err != nil {
		return res, err
	}
	if predicted <= 0 {
		return res, domain.ErrNonPositivePrediction
	}
	res.Predicted = predicted
	res.DeviationPercent = Percent(res.ActualUsed, predicted)
	res.EfficiencyScore = EfficiencyScore(res.DeviationPercent)
	res.Stage = domain.StageScored

	res.Compliance = Classify(res.DeviationPercent)
	res.Stage = domain.StageClassified
	return res, nil
}

// Percent is (actual-predicted)/predicted*100 rounded to 1e-9 so values such
// as 105 against 100 land exactly on the 5% boundary.
func Percent(actual, predicted float64) float64 {
	pct := (actual - predicted) * 100 / predicted
	return math.Round(pct*1e9) / 1e9
}

// Classify maps a deviation percent to a compliance class. Boundaries belong
// to the class nearer zero: exactly +5 is ON_TARGET, exactly +15 is
// MINOR_DEVIATION, exactly +30 is MODERATE_DEVIATION, exactly -5 is ON_TARGET.
func Classify(pct float64) domain.Compliance {
	switch {
	case pct < -5:
		return domain.ComplianceExcellent
	case pct <= 5:
		return domain.ComplianceOnTarget
	case pct <= 15:
		return domain.ComplianceMinor
	case pct <= 30:
		return domain.ComplianceModerate
	default:
		return domain.ComplianceSevere
	}
}

// EfficiencyScore is a descriptive step function of |pct|. It never feeds
// compliance classification.
func EfficiencyScore(pct float64) float64 {
	abs := math.Abs(pct)
	switch {
	case abs <= 5:
		return 1.0
	case abs <= 15:
		return 0.8
	case abs <= 30:
		return 0.6
	default:
		return 0.4
	}
}
