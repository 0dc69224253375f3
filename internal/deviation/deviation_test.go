package deviation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

func testModel() *domain.BaselineModel {
	return &domain.BaselineModel{
		ID:           "model-1",
		Version:      3,
		EntityID:     "press-1",
		EnergySource: "electricity",
		DriverNames:  []string{"production_count", "temperature"},
		Coefficients: []float64{0.5, 2},
		Intercept:    100,
		RSquared:     0.93,
		SampleCount:  365,
	}
}

func day(total, hours float64, complete bool) domain.Aggregate {
	return domain.Aggregate{
		EntityID:       "press-1",
		EnergySource:   "electricity",
		IntervalStart:  time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		TotalEnergyKWh: total,
		DriverMeans:    domain.DriverValues{"production_count": 1600, "temperature": 50},
		HoursCovered:   hours,
		IsComplete:     complete,
	}
}

// testModel predicts 100 + 0.5*1600 + 2*50 = 1000 kWh for day().

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want domain.Compliance
	}{
		{-30, domain.ComplianceExcellent},
		{-5.01, domain.ComplianceExcellent},
		{-5, domain.ComplianceOnTarget},
		{0, domain.ComplianceOnTarget},
		{5, domain.ComplianceOnTarget},
		{5.01, domain.ComplianceMinor},
		{15, domain.ComplianceMinor},
		{15.01, domain.ComplianceModerate},
		{30, domain.ComplianceModerate},
		{30.01, domain.ComplianceSevere},
		{250, domain.ComplianceSevere},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.pct), "pct=%v", c.pct)
	}
}

func TestEfficiencyScoreSteps(t *testing.T) {
	assert.Equal(t, 1.0, EfficiencyScore(-5))
	assert.Equal(t, 1.0, EfficiencyScore(5))
	assert.Equal(t, 0.8, EfficiencyScore(-12))
	assert.Equal(t, 0.8, EfficiencyScore(15))
	assert.Equal(t, 0.6, EfficiencyScore(30))
	assert.Equal(t, 0.4, EfficiencyScore(-31))
}

func TestPercentExactBoundary(t *testing.T) {
	assert.Equal(t, 5.0, Percent(1050, 1000))
	assert.Equal(t, domain.ComplianceOnTarget, Classify(Percent(105, 100)))
	assert.Equal(t, domain.ComplianceMinor, Classify(Percent(1050.1, 1000)))
}

func TestProjectPartialRoundTrip(t *testing.T) {
	assert.InDelta(t, 1105.6, ProjectPartial(664.23, 14.42, 24), 0.1)
}

func TestEvaluateCompletePeriod(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res, err := e.Evaluate(testModel(), day(1200, 24, true))
	require.NoError(t, err)
	assert.InDelta(t, 1000, res.Predicted, 1e-9)
	assert.InDelta(t, 20, res.DeviationPercent, 1e-9)
	assert.Equal(t, domain.ComplianceModerate, res.Compliance)
	assert.Equal(t, 0.6, res.EfficiencyScore)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.ProjectionApplied)
	assert.Nil(t, res.ActualProjected)
	assert.Equal(t, domain.StageClassified, res.Stage)
	assert.Equal(t, 3, res.ModelVersion)
}

func TestEvaluatePartialPeriodIsProjected(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res, err := e.Evaluate(testModel(), day(664.23, 14.42, false))
	require.NoError(t, err)
	require.True(t, res.ProjectionApplied)
	require.NotNil(t, res.ActualProjected)
	assert.InDelta(t, 1105.6, *res.ActualProjected, 0.1)
	assert.InDelta(t, 664.23, res.ActualRaw, 1e-9)
	assert.Equal(t, *res.ActualProjected, res.ActualUsed)
	assert.Less(t, res.Confidence, 1.0)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Equal(t, domain.ComplianceMinor, res.Compliance)
}

func TestEvaluatePartialWithoutProjectionWouldLookExcellent(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res, err := e.Evaluate(testModel(), day(664.23, 14.42, false))
	require.NoError(t, err)
	assert.NotEqual(t, Classify(Percent(res.ActualRaw, res.Predicted)), res.Compliance)
}

func TestEvaluateNearCompletePeriod(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res, err := e.Evaluate(testModel(), day(990, 23, false))
	require.NoError(t, err)
	assert.False(t, res.ProjectionApplied)
	assert.Equal(t, 0.9, res.Confidence)
	assert.InDelta(t, -1, res.DeviationPercent, 1e-9)
}

func TestEvaluateConfidenceProperty(t *testing.T) {
	e := NewEngine(DefaultConfig())
	for hours := 1.0; hours <= 24; hours += 0.5 {
		complete := hours == 24
		res, err := e.Evaluate(testModel(), day(40*hours, hours, complete))
		require.NoError(t, err)
		if complete {
			assert.Equal(t, 1.0, res.Confidence)
			continue
		}
		assert.Less(t, res.Confidence, 1.0)
		if res.ProjectionApplied {
			assert.Equal(t, domain.StageClassified, res.Stage)
		} else {
			assert.GreaterOrEqual(t, hours, 22.0)
		}
	}
}

func TestEvaluateDriverMismatch(t *testing.T) {
	e := NewEngine(DefaultConfig())
	agg := day(1000, 24, true)
	delete(agg.DriverMeans, "temperature")

	_, err := e.Evaluate(testModel(), agg)
	var mismatch *domain.DriverMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "temperature", mismatch.Driver)
}

func TestEvaluateRejectsDegenerateInputs(t *testing.T) {
	e := NewEngine(DefaultConfig())

	_, err := e.Evaluate(testModel(), day(0, 0, false))
	assert.ErrorIs(t, err, domain.ErrNoCoverage)

	m := testModel()
	m.Intercept = -5000
	_, err = e.Evaluate(m, day(1000, 24, true))
	assert.ErrorIs(t, err, domain.ErrNonPositivePrediction)

	_, err = e.Evaluate(nil, day(1000, 24, true))
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestEvaluateSeriesSummary(t *testing.T) {
	e := NewEngine(DefaultConfig())
	aggs := []domain.Aggregate{
		day(1000, 24, true),
		day(1100, 24, true),
		day(900, 24, true),
		day(500, 12, false),
	}

	results, sum, err := e.EvaluateSeries(testModel(), aggs)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 4, sum.Periods)
	assert.Equal(t, 1, sum.ProjectedPeriods)
	assert.InDelta(t, 4000, sum.TotalActualKWh, 1e-9)
	assert.InDelta(t, 4000, sum.TotalPredictedKWh, 1e-9)
	assert.InDelta(t, 0, sum.CumulativeDeviation, 1e-9)
	assert.Equal(t, domain.ComplianceOnTarget, sum.Compliance)
	assert.Equal(t, 1, sum.ByCompliance[domain.ComplianceMinor])
	assert.Equal(t, 1, sum.ByCompliance[domain.ComplianceExcellent])
	assert.InDelta(t, 0.75, sum.OnTargetShare, 1e-9)
	assert.InDelta(t, 0.9, sum.MeanConfidence, 1e-9)
}
