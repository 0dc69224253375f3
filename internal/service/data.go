package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// DataAccess serves readings and on-demand aggregates to the analytic
// components.
type DataAccess struct {
	store Store
	opts  aggregate.Options
}

func (d *DataAccess) FetchReadings(ctx context.Context, entityID, energySource string, start, end time.Time) ([]domain.Reading, error) {
	return d.store.ReadingsBetween(ctx, entityID, energySource, start, end)
}

// FetchAggregates aggregates readings in [start, end). One sample interval
// before start is read as well so the first bucket gets its energy delta; any
// bucket starting before start is dropped.
func (d *DataAccess) FetchAggregates(ctx context.Context, entityID, energySource string, interval aggregate.Interval, start, end time.Time) ([]domain.Aggregate, error) {
	lead := d.opts.SampleInterval
	if lead <= 0 {
		lead = aggregate.DefaultOptions().SampleInterval
	}
	readings, err := d.store.ReadingsBetween(ctx, entityID, energySource, start.Add(-lead), end)
	if err != nil {
		return nil, fmt.Errorf("fetch readings: %w", err)
	}
	aggs, err := aggregate.Aggregate(readings, interval, d.opts)
	if err != nil {
		return nil, err
	}
	first := interval.Start(start)
	out := aggs[:0]
	for _, a := range aggs {
		if a.IntervalStart.Before(first) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
