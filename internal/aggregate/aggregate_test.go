package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func hourlyReadings(entity string, start time.Time, hours int, kwhPerHour float64, startCounter float64) []domain.Reading {
	out := make([]domain.Reading, 0, hours)
	counter := startCounter
	for h := 0; h < hours; h++ {
		counter += kwhPerHour
		out = append(out, domain.Reading{
			EntityID:     entity,
			EnergySource: "electricity",
			Timestamp:    start.Add(time.Duration(h) * time.Hour),
			PowerKW:      kwhPerHour,
			EnergyKWh:    counter,
			Drivers:      domain.DriverValues{"production_count": float64(10 + h)},
		})
	}
	return out
}

func TestAggregateDailyComplete(t *testing.T) {
	readings := hourlyReadings("press-1", day0, 48, 5, 1000)

	aggs, err := Aggregate(readings, Daily, Options{SampleInterval: time.Hour})
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	first := aggs[0]
	assert.True(t, first.IsComplete)
	assert.Equal(t, 24, first.SampleCount)
	assert.InDelta(t, 24.0, first.HoursCovered, 1e-9)
	// the first reading of the series has no predecessor
	assert.InDelta(t, 23*5.0, first.TotalEnergyKWh, 1e-9)
	assert.InDelta(t, 5.0, first.MeanPowerKW, 1e-9)
	assert.InDelta(t, 21.5, first.DriverMeans["production_count"], 1e-9)

	second := aggs[1]
	assert.Equal(t, day0.Add(24*time.Hour), second.IntervalStart)
	assert.InDelta(t, 24*5.0, second.TotalEnergyKWh, 1e-9)
	assert.InDelta(t, 5.0, second.MeanEnergyKWh, 1e-9)
}

func TestAggregatePartialDay(t *testing.T) {
	readings := hourlyReadings("press-1", day0, 10, 4, 0)

	aggs, err := Aggregate(readings, Daily, Options{SampleInterval: time.Hour})
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.False(t, agg.IsComplete)
	assert.Equal(t, 24, agg.ExpectedSamples)
	assert.InDelta(t, 10.0, agg.HoursCovered, 1e-9)
}

func TestAggregateOutOfOrder(t *testing.T) {
	readings := hourlyReadings("press-1", day0, 3, 4, 0)
	readings[1], readings[2] = readings[2], readings[1]

	_, err := Aggregate(readings, Hourly, DefaultOptions())
	var ooo *domain.OutOfOrderDataError
	require.True(t, errors.As(err, &ooo))
	assert.Equal(t, 2, ooo.Index)
}

func TestAggregateMeterReset(t *testing.T) {
	readings := hourlyReadings("press-1", day0, 3, 4, 100)
	readings[2].EnergyKWh = 3

	aggs, err := Aggregate(readings, Daily, Options{SampleInterval: time.Hour})
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.InDelta(t, 4.0+3.0, aggs[0].TotalEnergyKWh, 1e-9)
}

func TestAggregateSeparatesEntities(t *testing.T) {
	a := hourlyReadings("b-lathe", day0, 2, 1, 0)
	b := hourlyReadings("a-press", day0, 2, 2, 0)
	merged := []domain.Reading{a[0], b[0], a[1], b[1]}

	aggs, err := Aggregate(merged, Hourly, Options{SampleInterval: time.Hour})
	require.NoError(t, err)
	require.Len(t, aggs, 4)
	assert.Equal(t, "a-press", aggs[0].EntityID)
	assert.Equal(t, "b-lathe", aggs[2].EntityID)
	assert.InDelta(t, 2.0, aggs[1].TotalEnergyKWh, 1e-9)
	assert.True(t, aggs[1].IsComplete)
}

func TestParseInterval(t *testing.T) {
	i, err := ParseInterval("hour")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, i.Duration())

	i, err = ParseInterval("")
	require.NoError(t, err)
	assert.Equal(t, Daily, i)

	_, err = ParseInterval("week")
	assert.Error(t, err)
}

func TestEnergyDelta(t *testing.T) {
	assert.Equal(t, 2.5, EnergyDelta(10, 12.5))
	assert.Equal(t, 0.0, EnergyDelta(10, 10))
	// counter reset
	assert.Equal(t, 3.0, EnergyDelta(9000, 3))
}
