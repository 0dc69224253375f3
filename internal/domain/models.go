package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DriverValues holds named driver-variable values (production_count, temperature, ...).
type DriverValues map[string]float64

// Value implements driver.Valuer so readings can be stored as a JSON column.
func (d DriverValues) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *DriverValues) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = DriverValues{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("driver values: unsupported type %T", src)
	}
	out := DriverValues{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("driver values: %w", err)
	}
	*d = out
	return nil
}

type Machine struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	EnergySource string  `db:"energy_source" json:"energy_source"`
	RatedPowerKW float64 `db:"rated_power_kw" json:"rated_power_kw"`
}

// Reading is a raw meter sample. Readings are append-only.
type Reading struct {
	ID           int64        `db:"id" json:"id,omitempty"`
	EntityID     string       `db:"entity_id" json:"entity_id"`
	EnergySource string       `db:"energy_source" json:"energy_source"`
	Timestamp    time.Time    `db:"timestamp" json:"timestamp"`
	PowerKW      float64      `db:"power_kw" json:"power_kw"`
	EnergyKWh    float64      `db:"energy_kwh" json:"energy_kwh"`
	Drivers      DriverValues `db:"drivers" json:"drivers,omitempty"`
}

// Aggregate is one fixed interval of readings for an (entity, energy source) pair.
type Aggregate struct {
	EntityID        string        `json:"entity_id"`
	EnergySource    string        `json:"energy_source"`
	IntervalStart   time.Time     `json:"interval_start"`
	Interval        time.Duration `json:"interval"`
	TotalEnergyKWh  float64       `json:"total_energy_kwh"`
	MeanEnergyKWh   float64       `json:"mean_energy_kwh"`
	MeanPowerKW     float64       `json:"mean_power_kw"`
	DriverMeans     DriverValues  `json:"driver_means"`
	DriverSums      DriverValues  `json:"driver_sums"`
	SampleCount     int           `json:"sample_count"`
	ExpectedSamples int           `json:"expected_samples"`
	HoursCovered    float64       `json:"hours_covered"`
	IsComplete      bool          `json:"is_complete"`
}

// PeriodHours is the nominal length of the aggregate interval in hours.
func (a Aggregate) PeriodHours() float64 { return a.Interval.Hours() }

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Days() float64 { return p.End.Sub(p.Start).Hours() / 24 }

func (p Period) Hours() float64 { return p.End.Sub(p.Start).Hours() }

// Contains reports whether t falls in [Start, End).
func (p Period) Contains(t time.Time) bool { return !t.Before(p.Start) && t.Before(p.End) }

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || !p.End.After(p.Start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidPeriod, p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	return nil
}

type SelectionMode string

const (
	SelectionManual SelectionMode = "manual"
	SelectionAuto   SelectionMode = "auto"
)

// SelectionStep records one driver removed by automatic selection.
type SelectionStep struct {
	Driver        string  `json:"driver"`
	Reason        string  `json:"reason"`
	Coefficient   float64 `json:"coefficient"`
	Contribution  float64 `json:"contribution"`
	RSquaredAfter float64 `json:"r_squared_after"`
}

// Term is a driver paired with its coefficient.
type Term struct {
	Driver      string  `json:"driver"`
	Coefficient float64 `json:"coefficient"`
}

// BaselineModel is one persisted version of a regression baseline. Retraining
// produces a new version; stored versions are never mutated.
type BaselineModel struct {
	ID             string          `json:"id"`
	EntityID       string          `json:"entity_id"`
	EnergySource   string          `json:"energy_source"`
	Version        int             `json:"version"`
	TrainingStart  time.Time       `json:"training_start"`
	TrainingEnd    time.Time       `json:"training_end"`
	DriverNames    []string        `json:"driver_names"`
	Coefficients   []float64       `json:"coefficients"`
	Intercept      float64         `json:"intercept"`
	RSquared       float64         `json:"r_squared"`
	CVRSquared     *float64        `json:"cv_r_squared,omitempty"`
	SampleCount    int             `json:"sample_count"`
	SelectionMode  SelectionMode   `json:"selection_mode"`
	SelectionSteps []SelectionStep `json:"selection_steps,omitempty"`
	TrainedAt      time.Time       `json:"trained_at"`
}

// Terms returns the ordered driver/coefficient pairs.
func (m *BaselineModel) Terms() []Term {
	out := make([]Term, len(m.DriverNames))
	for i, name := range m.DriverNames {
		out[i] = Term{Driver: name, Coefficient: m.Coefficients[i]}
	}
	return out
}

// Validate checks the structural invariants of a model against a sample floor.
func (m *BaselineModel) Validate(minSamples int) error {
	if m.EntityID == "" || m.EnergySource == "" {
		return fmt.Errorf("%w: missing entity or energy source", ErrInvalidModel)
	}
	if len(m.Coefficients) != len(m.DriverNames) {
		return fmt.Errorf("%w: %d coefficients for %d drivers", ErrInvalidModel, len(m.Coefficients), len(m.DriverNames))
	}
	if math.IsNaN(m.RSquared) || m.RSquared < 0 || m.RSquared > 1 {
		return fmt.Errorf("%w: r_squared %v out of range", ErrInvalidModel, m.RSquared)
	}
	for i, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coefficient for %s is not finite", ErrInvalidModel, m.DriverNames[i])
		}
	}
	if m.SampleCount < minSamples {
		return &InsufficientDataError{Samples: m.SampleCount, Floor: minSamples}
	}
	return nil
}

// Compliance is the classification of one deviation percentage.
type Compliance string

const (
	ComplianceExcellent Compliance = "EXCELLENT"
	ComplianceOnTarget  Compliance = "ON_TARGET"
	ComplianceMinor     Compliance = "MINOR_DEVIATION"
	ComplianceModerate  Compliance = "MODERATE_DEVIATION"
	ComplianceSevere    Compliance = "SEVERE_DEVIATION"
)

// EvaluationStage tracks how far a deviation evaluation progressed.
type EvaluationStage string

const (
	StageReceived   EvaluationStage = "received"
	StageProjected  EvaluationStage = "projected"
	StageScored     EvaluationStage = "scored"
	StageClassified EvaluationStage = "classified"
)

type DeviationResult struct {
	ModelID           string          `json:"model_id"`
	ModelVersion      int             `json:"model_version"`
	EntityID          string          `json:"entity_id"`
	EnergySource      string          `json:"energy_source"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodHours       float64         `json:"period_hours"`
	HoursCovered      float64         `json:"hours_covered"`
	ActualRaw         float64         `json:"actual_raw"`
	ActualProjected   *float64        `json:"actual_projected,omitempty"`
	ActualUsed        float64         `json:"actual_used"`
	Predicted         float64         `json:"predicted"`
	DeviationPercent  float64         `json:"deviation_percent"`
	Confidence        float64         `json:"confidence"`
	ProjectionApplied bool            `json:"projection_applied"`
	Compliance        Compliance      `json:"compliance"`
	EfficiencyScore   float64         `json:"efficiency_score"`
	Stage             EvaluationStage `json:"stage"`
}
