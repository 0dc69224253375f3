// Package aggregate reduces raw meter readings into fixed-interval aggregates.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

type Interval string

const (
	Hourly Interval = "hour"
	Daily  Interval = "day"
)

func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case Hourly, Daily:
		return Interval(s), nil
	case "":
		return Daily, nil
	}
	return "", fmt.Errorf("aggregate: unsupported interval %q", s)
}

func (i Interval) Duration() time.Duration {
	if i == Hourly {
		return time.Hour
	}
	return 24 * time.Hour
}

// Start returns the UTC bucket start containing t.
func (i Interval) Start(t time.Time) time.Time {
	t = t.UTC()
	if i == Hourly {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Options control completeness accounting.
type Options struct {
	// SampleInterval is the nominal meter sampling period.
	SampleInterval time.Duration
}

func DefaultOptions() Options {
	return Options{SampleInterval: 15 * time.Minute}
}

type seriesKey struct {
	entity string
	source string
}

type bucket struct {
	start    time.Time
	energy   float64
	power    []aggregator.Point
	drivers  map[string][]aggregator.Point
	first    time.Time
	last     time.Time
	received int
}

// Aggregate reduces readings into interval aggregates per (entity, energy source).
// Readings must be ordered by timestamp; equal timestamps are allowed.
// Energy is the sum of cumulative-counter deltas, each delta attributed to the
// bucket of the later reading. A negative delta is a meter reset and counts the
// new cumulative value. Output is ordered by entity, source and interval start.
func Aggregate(readings []domain.Reading, interval Interval, opts Options) ([]domain.Aggregate, error) {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = DefaultOptions().SampleInterval
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.Before(readings[i-1].Timestamp) {
			return nil, &domain.OutOfOrderDataError{
				Index:    i,
				Previous: readings[i-1].Timestamp,
				Current:  readings[i].Timestamp,
			}
		}
	}

	series := make(map[seriesKey][]*bucket)
	lastEnergy := make(map[seriesKey]float64)
	for _, r := range readings {
		key := seriesKey{entity: r.EntityID, source: r.EnergySource}
		start := interval.Start(r.Timestamp)

		buckets := series[key]
		var b *bucket
		if n := len(buckets); n > 0 && buckets[n-1].start.Equal(start) {
			b = buckets[n-1]
		} else {
			b = &bucket{start: start, first: r.Timestamp, drivers: map[string][]aggregator.Point{}}
			series[key] = append(buckets, b)
		}

		if prev, ok := lastEnergy[key]; ok {
			b.energy += EnergyDelta(prev, r.EnergyKWh)
		}
		lastEnergy[key] = r.EnergyKWh

		b.last = r.Timestamp
		b.received++
		b.power = append(b.power, aggregator.Point{Value: r.PowerKW, Timestamp: r.Timestamp})
		for name, v := range r.Drivers {
			b.drivers[name] = append(b.drivers[name], aggregator.Point{Value: v, Timestamp: r.Timestamp})
		}
	}

	keys := make([]seriesKey, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entity != keys[j].entity {
			return keys[i].entity < keys[j].entity
		}
		return keys[i].source < keys[j].source
	})

	length := interval.Duration()
	expected := int(length / opts.SampleInterval)
	if expected < 1 {
		expected = 1
	}

	var out []domain.Aggregate
	for _, k := range keys {
		for _, b := range series[k] {
			out = append(out, b.finish(k, length, expected, opts.SampleInterval))
		}
	}
	return out, nil
}

// EnergyDelta is the energy consumed between two cumulative counter values.
// A drop means the meter was reset, so the new value is the consumption.
func EnergyDelta(prev, cur float64) float64 {
	if d := cur - prev; d >= 0 {
		return d
	}
	return cur
}

func (b *bucket) finish(k seriesKey, length time.Duration, expected int, sample time.Duration) domain.Aggregate {
	agg := domain.Aggregate{
		EntityID:        k.entity,
		EnergySource:    k.source,
		IntervalStart:   b.start,
		Interval:        length,
		TotalEnergyKWh:  b.energy,
		MeanPowerKW:     aggregator.Average(b.power),
		DriverMeans:     domain.DriverValues{},
		DriverSums:      domain.DriverValues{},
		SampleCount:     b.received,
		ExpectedSamples: expected,
	}
	for name, points := range b.drivers {
		agg.DriverMeans[name] = aggregator.Average(points)
		agg.DriverSums[name] = aggregator.Sum(points)
	}

	if b.received >= expected {
		agg.IsComplete = true
		agg.HoursCovered = length.Hours()
	} else {
		span := b.last.Sub(b.first) + sample
		agg.HoursCovered = math.Min(span.Hours(), length.Hours())
	}
	if agg.HoursCovered > 0 {
		agg.MeanEnergyKWh = agg.TotalEnergyKWh / agg.HoursCovered
	}
	return agg
}
