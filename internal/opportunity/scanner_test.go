package opportunity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// Monday.
var scanStart = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func twoWeeks() domain.Period {
	return domain.Period{Start: scanStart, End: scanStart.AddDate(0, 0, 14)}
}

const sample = 15 * time.Minute

// history samples power every 15 minutes, starting one sample before the scan
// period, and aggregates it hourly the way the data layer does.
func history(t *testing.T, id string, power func(t time.Time) float64) History {
	t.Helper()
	var readings []domain.Reading
	cumulative := 0.0
	end := twoWeeks().End
	for ts := scanStart.Add(-sample); ts.Before(end); ts = ts.Add(sample) {
		p := power(ts)
		cumulative += p * sample.Hours()
		readings = append(readings, domain.Reading{
			EntityID:     id,
			EnergySource: "electricity",
			Timestamp:    ts,
			PowerKW:      p,
			EnergyKWh:    cumulative,
		})
	}
	aggs, err := aggregate.Aggregate(readings, aggregate.Hourly, aggregate.Options{SampleInterval: sample})
	require.NoError(t, err)
	var hours []domain.Aggregate
	for _, a := range aggs {
		if !a.IntervalStart.Before(scanStart) {
			hours = append(hours, a)
		}
	}
	return History{Readings: readings, Hours: hours}
}

func weekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// day shift 08-18 on weekdays at 80 kW, 5 kW otherwise
func dayShift(t time.Time) float64 {
	if !weekend(t) && t.Hour() >= 8 && t.Hour() < 18 {
		return 80
	}
	return 5
}

func constant(kw float64) func(time.Time) float64 {
	return func(time.Time) float64 { return kw }
}

func stepUp(t time.Time) float64 {
	if t.Before(scanStart.AddDate(0, 0, 7)) {
		return 10
	}
	return 15
}

type stubSource struct {
	data map[string]History
	errs map[string]error
}

func (s stubSource) FetchReadings(_ context.Context, entityID, _ string, start, _ time.Time) ([]domain.Reading, error) {
	if !start.Equal(scanStart.Add(-sample)) {
		return nil, errors.New("scanner must read one sample before the period")
	}
	if err := s.errs[entityID]; err != nil {
		return nil, err
	}
	return s.data[entityID].Readings, nil
}

func (s stubSource) FetchAggregates(_ context.Context, entityID, _ string, interval aggregate.Interval, _, _ time.Time) ([]domain.Aggregate, error) {
	if interval != aggregate.Hourly {
		return nil, errors.New("scanner must request hourly aggregates")
	}
	if err := s.errs[entityID]; err != nil {
		return nil, err
	}
	return s.data[entityID].Hours, nil
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestDetectExcessiveIdle(t *testing.T) {
	m := domain.Machine{ID: "a", Name: "Compressor A", RatedPowerKW: 100}
	opps, errs := Detect(m, history(t, "a", dayShift), twoWeeks(), DefaultConfig())
	require.Empty(t, errs)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, domain.IssueExcessiveIdle, o.IssueType)
	// 944 idle samples of 1.25 kWh, 80% recoverable
	assert.InDelta(t, 944, o.PotentialSavingsKWh, 1e-6)
	decEqual(t, "113.28", o.PotentialSavingsUSD)
	assert.Equal(t, domain.EffortLow, o.EffortTier)
	assert.Equal(t, 62, o.ROIDays)
	assert.InDelta(t, 236.0/336.0, o.Evidence, 1e-9)
}

// 2 kW for three quarters of every hour and full load for the last quarter:
// hourly means stay well above the idle limit, samples do not.
func cycling(t time.Time) float64 {
	if t.Minute() == 45 {
		return 100
	}
	return 2
}

func TestDetectIdleCountsSamplesWithinHours(t *testing.T) {
	m := domain.Machine{ID: "k", Name: "Kiln K", RatedPowerKW: 100}
	h := history(t, "k", cycling)
	for _, a := range h.Hours {
		require.InDelta(t, 26.5, a.MeanPowerKW, 1e-9)
	}

	f, err := detectExcessiveIdle(m, h, twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 0.75, f.evidence, 1e-9)
	// 3 idle samples of 0.5 kWh per hour over 336 hours, 80% recoverable
	assert.InDelta(t, 403.2, f.savingsKWh, 1e-6)

	opps, errs := Detect(m, h, twoWeeks(), DefaultConfig())
	require.Empty(t, errs)
	var idle *domain.Opportunity
	for i := range opps {
		if opps[i].IssueType == domain.IssueExcessiveIdle {
			idle = &opps[i]
		}
	}
	require.NotNil(t, idle)
	decEqual(t, "48.38", idle.PotentialSavingsUSD)
}

func TestDetectIdleIgnoresLeadSample(t *testing.T) {
	m := domain.Machine{ID: "a", Name: "Compressor A", RatedPowerKW: 100}
	h := history(t, "a", constant(50))
	h.Readings[0].PowerKW = 0

	f, err := detectExcessiveIdle(m, h, twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestDetectIdleRequiresRatedPower(t *testing.T) {
	m := domain.Machine{ID: "x", Name: "Unknown", RatedPowerKW: 0}
	_, err := detectExcessiveIdle(m, history(t, "x", constant(40)), twoWeeks(), DefaultConfig())
	assert.ErrorIs(t, err, ErrNoRatedPower)
}

func TestDetectInefficientScheduling(t *testing.T) {
	m := domain.Machine{ID: "b", Name: "Oven B", RatedPowerKW: 50}
	opps, errs := Detect(m, history(t, "b", constant(40)), twoWeeks(), DefaultConfig())
	require.Empty(t, errs)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, domain.IssueInefficientScheduling, o.IssueType)
	// 196 off-hours at 40 kWh, 30% judged necessary
	assert.InDelta(t, 5488, o.PotentialSavingsKWh, 1e-6)
	decEqual(t, "658.56", o.PotentialSavingsUSD)
	assert.InDelta(t, 196.0/336.0, o.Evidence, 1e-9)
}

func TestDetectBaselineDrift(t *testing.T) {
	m := domain.Machine{ID: "c", Name: "Pump C", RatedPowerKW: 20}
	f, err := detectBaselineDrift(m, history(t, "c", stepUp), twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 0.5, f.evidence, 1e-9)
	assert.InDelta(t, 1680, f.savingsKWh, 1e-9)
	assert.Equal(t, domain.EffortMedium, f.effort)

	flat, err := detectBaselineDrift(m, history(t, "c", constant(10)), twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, flat)
}

func TestDriftSplitsAtPeriodMidpoint(t *testing.T) {
	m := domain.Machine{ID: "c", Name: "Pump C", RatedPowerKW: 20}
	h := history(t, "c", stepUp)
	// the meter was offline for most of the second week
	var gappy []domain.Aggregate
	for _, a := range h.Hours {
		if a.IntervalStart.Before(scanStart.AddDate(0, 0, 7)) || !a.IntervalStart.Before(scanStart.AddDate(0, 0, 12)) {
			gappy = append(gappy, a)
		}
	}
	h.Hours = gappy

	f, err := detectBaselineDrift(m, h, twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 0.5, f.evidence, 1e-9)
	assert.InDelta(t, 1680, f.savingsKWh, 1e-9)

	early, err := detectBaselineDrift(m, History{Hours: h.Hours[:24]}, twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, early)
}

func TestDriftIgnoresInputOrder(t *testing.T) {
	m := domain.Machine{ID: "c", Name: "Pump C", RatedPowerKW: 20}
	h := history(t, "c", stepUp)
	reversed := make([]domain.Aggregate, len(h.Hours))
	for i, a := range h.Hours {
		reversed[len(h.Hours)-1-i] = a
	}
	f, err := detectBaselineDrift(m, History{Hours: reversed}, twoWeeks(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 0.5, f.evidence, 1e-9)
}

func TestOffHoursWindow(t *testing.T) {
	cfg := DefaultConfig()
	monday := scanStart
	assert.True(t, cfg.isOffHours(monday.Add(5*time.Hour)))
	assert.False(t, cfg.isOffHours(monday.Add(6*time.Hour)))
	assert.False(t, cfg.isOffHours(monday.Add(19*time.Hour)))
	assert.True(t, cfg.isOffHours(monday.Add(20*time.Hour)))
	assert.True(t, cfg.isOffHours(monday.AddDate(0, 0, 5).Add(12*time.Hour)))
}

func newTestScanner(t *testing.T, src stubSource) *Scanner {
	t.Helper()
	s, err := NewScanner(src, DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestScanRanksBySavings(t *testing.T) {
	src := stubSource{data: map[string]History{
		"a": history(t, "a", dayShift),
		"b": history(t, "b", constant(40)),
		"c": history(t, "c", stepUp),
	}}
	machines := []domain.Machine{
		{ID: "a", Name: "Compressor A", EnergySource: "electricity", RatedPowerKW: 100},
		{ID: "b", Name: "Oven B", EnergySource: "electricity", RatedPowerKW: 50},
		{ID: "c", Name: "Pump C", EnergySource: "electricity", RatedPowerKW: 20},
	}

	opps, err := newTestScanner(t, src).Scan(context.Background(), machines, twoWeeks())
	require.NoError(t, err)
	require.Len(t, opps, 4)

	type key struct {
		entity string
		issue  domain.IssueType
	}
	var got []key
	for i, o := range opps {
		assert.Equal(t, i+1, o.Rank)
		got = append(got, key{o.EntityID, o.IssueType})
		if i > 0 {
			assert.True(t, opps[i-1].PotentialSavingsUSD.GreaterThanOrEqual(o.PotentialSavingsUSD))
		}
	}
	assert.Equal(t, []key{
		{"b", domain.IssueInefficientScheduling},
		{"c", domain.IssueInefficientScheduling},
		{"c", domain.IssueBaselineDrift},
		{"a", domain.IssueExcessiveIdle},
	}, got)
}

func TestScanIsIdempotent(t *testing.T) {
	src := stubSource{data: map[string]History{
		"a": history(t, "a", dayShift),
		"b": history(t, "b", constant(40)),
		"c": history(t, "c", stepUp),
	}}
	machines := []domain.Machine{
		{ID: "c", Name: "Pump C", RatedPowerKW: 20},
		{ID: "a", Name: "Compressor A", RatedPowerKW: 100},
		{ID: "b", Name: "Oven B", RatedPowerKW: 50},
	}
	s := newTestScanner(t, src)

	first, err := s.Scan(context.Background(), machines, twoWeeks())
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), machines, twoWeeks())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanTiesBreakOnName(t *testing.T) {
	src := stubSource{data: map[string]History{
		"2": history(t, "2", constant(40)),
		"1": history(t, "1", constant(40)),
	}}
	machines := []domain.Machine{
		{ID: "2", Name: "Zeta", RatedPowerKW: 50},
		{ID: "1", Name: "Alpha", RatedPowerKW: 50},
	}
	opps, err := newTestScanner(t, src).Scan(context.Background(), machines, twoWeeks())
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "Alpha", opps[0].EntityName)
	assert.Equal(t, "Zeta", opps[1].EntityName)
}

func TestScanSkipsFailingMachines(t *testing.T) {
	src := stubSource{
		data: map[string]History{
			"b": history(t, "b", constant(40)),
			"e": history(t, "e", constant(40)),
		},
		errs: map[string]error{"d": errors.New("meter offline")},
	}
	machines := []domain.Machine{
		{ID: "b", Name: "Oven B", RatedPowerKW: 50},
		{ID: "d", Name: "Dryer D", RatedPowerKW: 30},
		{ID: "e", Name: "Extruder E"},
	}

	opps, err := newTestScanner(t, src).Scan(context.Background(), machines, twoWeeks())
	require.NoError(t, err)
	require.Len(t, opps, 2)
	for _, o := range opps {
		assert.NotEqual(t, "d", o.EntityID)
		assert.Equal(t, domain.IssueInefficientScheduling, o.IssueType)
	}
}

func TestScanRejectsInvertedPeriod(t *testing.T) {
	s := newTestScanner(t, stubSource{})
	_, err := s.Scan(context.Background(), nil, domain.Period{Start: scanStart, End: scanStart.Add(-time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestScanDropsZeroSavings(t *testing.T) {
	m := domain.Machine{ID: "z", Name: "Idle Z", RatedPowerKW: 10}
	opps, errs := Detect(m, history(t, "z", constant(0)), twoWeeks(), DefaultConfig())
	assert.Empty(t, errs)
	assert.Empty(t, opps)
}
