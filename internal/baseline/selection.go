package baseline

import (
	"fmt"
	"math"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// Sign is the physically plausible sign of a driver coefficient.
type Sign int

const (
	SignAny Sign = iota
	SignPositive
	SignNegative
)

func (s Sign) allows(coef float64) bool {
	switch s {
	case SignPositive:
		return coef >= 0
	case SignNegative:
		return coef <= 0
	}
	return true
}

// SelectionConfig tunes automatic driver selection.
type SelectionConfig struct {
	// MinContribution is the R² a driver must add to be kept. Elimination stops
	// once removing any remaining driver would cost more than this.
	MinContribution float64
	// ExpectedSigns maps driver names to their physically plausible sign.
	// Drivers not listed may take either sign.
	ExpectedSigns map[string]Sign
}

func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		MinContribution: 0.01,
		ExpectedSigns: map[string]Sign{
			"production_count": SignPositive,
			"units_produced":   SignPositive,
			"operating_hours":  SignPositive,
			"runtime_hours":    SignPositive,
			"throughput":       SignPositive,
		},
	}
}

const (
	reasonZeroVariance = "zero variance in training window"
	reasonCollinear    = "collinear with other drivers"
	reasonSign         = "non-physical coefficient sign"
	reasonWeak         = "contribution to r_squared below threshold"
)

// screen removes zero-variance and collinear candidates before any fit.
// Candidates are considered in order; a collinear driver is judged against the
// drivers already accepted.
func screen(ds Dataset, candidates []string) (kept []string, steps []domain.SelectionStep) {
	for _, name := range candidates {
		switch {
		case ds.zeroVariance(name):
			steps = append(steps, domain.SelectionStep{Driver: name, Reason: reasonZeroVariance})
		case ds.collinear(name, kept):
			steps = append(steps, domain.SelectionStep{Driver: name, Reason: reasonCollinear})
		default:
			kept = append(kept, name)
		}
	}
	return kept, steps
}

// validateManual rejects a caller-chosen driver list that cannot be fitted.
func validateManual(ds Dataset, drivers []string) error {
	seen := make(map[string]bool, len(drivers))
	for i, name := range drivers {
		if seen[name] {
			return &domain.DegenerateFeatureError{Driver: name, Reason: "listed more than once"}
		}
		seen[name] = true
		if ds.zeroVariance(name) {
			return &domain.DegenerateFeatureError{Driver: name, Reason: reasonZeroVariance}
		}
		if ds.collinear(name, drivers[:i]) {
			return &domain.DegenerateFeatureError{Driver: name, Reason: reasonCollinear}
		}
	}
	return nil
}

// stepwise performs backward elimination starting from the full candidate set:
//
//  1. fit every candidate;
//  2. while any coefficient has a non-physical sign, drop the offending driver
//     whose removal costs the least R², then refit;
//  3. compute each driver's contribution (R² of the current model minus R²
//     without it); drop the weakest if it contributes less than MinContribution,
//     then refit;
//  4. stop when every remaining driver contributes at least MinContribution.
//
// The returned steps record every removal in order.
func stepwise(ds Dataset, candidates []string, cfg SelectionConfig) (Fit, []domain.SelectionStep, error) {
	current := append([]string(nil), candidates...)
	fit, err := ds.OLS(current)
	if err != nil {
		return Fit{}, nil, err
	}

	var steps []domain.SelectionStep
	for len(current) > 0 {
		contrib, reduced, err := contributions(ds, current, fit)
		if err != nil {
			return Fit{}, nil, err
		}

		victim, reason := -1, ""
		for i, name := range current {
			if cfg.ExpectedSigns[name].allows(fit.Coefficients[i]) {
				continue
			}
			if victim < 0 || contrib[i] < contrib[victim] {
				victim = i
			}
		}
		if victim >= 0 {
			reason = reasonSign
		} else {
			weakest := 0
			for i := range current {
				if contrib[i] < contrib[weakest] {
					weakest = i
				}
			}
			if contrib[weakest] >= cfg.MinContribution {
				break
			}
			victim, reason = weakest, reasonWeak
		}

		steps = append(steps, domain.SelectionStep{
			Driver:        current[victim],
			Reason:        reason,
			Coefficient:   fit.Coefficients[victim],
			Contribution:  contrib[victim],
			RSquaredAfter: reduced[victim].RSquared,
		})
		current = append(current[:victim:victim], current[victim+1:]...)
		fit = reduced[victim]
	}
	return fit, steps, nil
}

// contributions refits the model once without each driver.
func contributions(ds Dataset, drivers []string, full Fit) ([]float64, []Fit, error) {
	contrib := make([]float64, len(drivers))
	reduced := make([]Fit, len(drivers))
	for i := range drivers {
		rest := make([]string, 0, len(drivers)-1)
		rest = append(rest, drivers[:i]...)
		rest = append(rest, drivers[i+1:]...)
		f, err := ds.OLS(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("refit without %s: %w", drivers[i], err)
		}
		reduced[i] = f
		contrib[i] = math.Max(full.RSquared-f.RSquared, 0)
	}
	return contrib, reduced, nil
}
