package opportunity

import (
	"errors"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// ErrNoRatedPower is returned by the idle detector for machines without a rated power.
var ErrNoRatedPower = errors.New("opportunity: machine has no rated power")

// finding is a detector result before pricing.
type finding struct {
	issue       domain.IssueType
	savingsKWh  float64
	evidence    float64
	description string
	action      string
	effort      domain.EffortTier
}

type detector func(m domain.Machine, h History, period domain.Period, cfg Config) (*finding, error)

// detectors run in this order; every one runs regardless of the others.
var detectors = []detector{
	detectExcessiveIdle,
	detectInefficientScheduling,
	detectBaselineDrift,
}

// detectExcessiveIdle flags machines whose samples read under IdlePowerRatio
// of rated power more than IdleShareThreshold of the time. Idle energy is the
// counter delta ending at each idle sample, the same attribution the
// aggregator uses.
func detectExcessiveIdle(m domain.Machine, h History, period domain.Period, cfg Config) (*finding, error) {
	if m.RatedPowerKW <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRatedPower, m.ID)
	}
	limit := cfg.IdlePowerRatio * m.RatedPowerKW
	var samples, idle int
	var idleKWh float64
	for i, r := range h.Readings {
		if !period.Contains(r.Timestamp) {
			continue
		}
		samples++
		if r.PowerKW >= limit {
			continue
		}
		idle++
		if i > 0 {
			idleKWh += aggregate.EnergyDelta(h.Readings[i-1].EnergyKWh, r.EnergyKWh)
		}
	}
	if samples == 0 {
		return nil, nil
	}
	share := float64(idle) / float64(samples)
	if share <= cfg.IdleShareThreshold {
		return nil, nil
	}
	return &finding{
		issue:      domain.IssueExcessiveIdle,
		savingsKWh: idleKWh * cfg.IdleRecoverableFraction,
		evidence:   share,
		description: fmt.Sprintf("%s runs below %.0f%% of rated power for %.0f%% of the period",
			m.Name, cfg.IdlePowerRatio*100, share*100),
		action: "Install or verify automatic shutdown after idle timeout",
		effort: domain.EffortLow,
	}, nil
}

// detectInefficientScheduling flags machines consuming more than
// OffHoursShareThreshold of their energy in off-hours or on weekends.
func detectInefficientScheduling(m domain.Machine, h History, _ domain.Period, cfg Config) (*finding, error) {
	var total, off float64
	for _, a := range h.Hours {
		total += a.TotalEnergyKWh
		if cfg.isOffHours(a.IntervalStart) {
			off += a.TotalEnergyKWh
		}
	}
	if total <= 0 {
		return nil, nil
	}
	share := off / total
	if share <= cfg.OffHoursShareThreshold {
		return nil, nil
	}
	return &finding{
		issue:      domain.IssueInefficientScheduling,
		savingsKWh: off * (1 - cfg.NecessaryBaselineFraction),
		evidence:   share,
		description: fmt.Sprintf("%s uses %.0f%% of its energy outside %02d:00-%02d:00 on weekdays",
			m.Name, share*100, cfg.OffHoursEnd, cfg.OffHoursStart),
		action: "Apply a time-based setback schedule for nights and weekends",
		effort: domain.EffortLow,
	}, nil
}

// detectBaselineDrift compares mean hourly energy after the period midpoint
// with the mean before it, and scales the rise over the whole period. Driver
// levels are not normalized, so seasonal production changes can read as drift.
func detectBaselineDrift(m domain.Machine, h History, period domain.Period, cfg Config) (*finding, error) {
	if len(h.Hours) < 4 {
		return nil, nil
	}
	mid := period.Start.Add(period.End.Sub(period.Start) / 2)
	var early, late []domain.Aggregate
	for _, a := range h.Hours {
		if a.IntervalStart.Before(mid) {
			early = append(early, a)
		} else {
			late = append(late, a)
		}
	}
	if len(early) == 0 || len(late) == 0 {
		return nil, nil
	}
	first, second := meanEnergy(early), meanEnergy(late)
	if first <= 0 || second <= first*(1+cfg.DriftThreshold) {
		return nil, nil
	}
	rise := (second - first) / first
	return &finding{
		issue:      domain.IssueBaselineDrift,
		savingsKWh: (second - first) * period.Hours(),
		evidence:   rise,
		description: fmt.Sprintf("%s consumption rose %.0f%% between the first and second half of the period; equipment degradation risk",
			m.Name, rise*100),
		action: "Inspect for wear, leaks and fouling; schedule maintenance",
		effort: domain.EffortMedium,
	}, nil
}

func meanEnergy(hours []domain.Aggregate) float64 {
	if len(hours) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hours {
		sum += h.TotalEnergyKWh
	}
	return sum / float64(len(hours))
}

func (c Config) isOffHours(t time.Time) bool {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if c.IncludeWeekends && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
		return true
	}
	h := t.Hour()
	if c.OffHoursStart > c.OffHoursEnd {
		return h >= c.OffHoursStart || h < c.OffHoursEnd
	}
	return h >= c.OffHoursStart && h < c.OffHoursEnd
}
