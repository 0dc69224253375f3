package domain

import (
	"fmt"
	"time"
)

type PlanStatus string

const (
	PlanDraft      PlanStatus = "draft"
	PlanInProgress PlanStatus = "in_progress"
	PlanComplete   PlanStatus = "complete"
)

var planStatusOrder = map[PlanStatus]int{
	PlanDraft:      0,
	PlanInProgress: 1,
	PlanComplete:   2,
}

// CanAdvance reports whether s may move to next. Transitions are forward-only
// and one step at a time.
func (s PlanStatus) CanAdvance(next PlanStatus) bool {
	from, ok := planStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := planStatusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

type PlanAction struct {
	Priority         int      `json:"priority"`
	Description      string   `json:"description"`
	ResponsibleParty string   `json:"responsible_party"`
	TimelineDays     int      `json:"timeline_days"`
	Resources        []string `json:"resources"`
}

type ExpectedOutcome struct {
	EnergyReductionPct float64  `json:"energy_reduction_pct"`
	CostNote           string   `json:"cost_note"`
	CarbonNote         string   `json:"carbon_note"`
	EnergySavingsKWh   *float64 `json:"energy_savings_kwh,omitempty"`
	CostSavingsUSD     *float64 `json:"cost_savings_usd,omitempty"`
	CarbonSavingsKg    *float64 `json:"carbon_savings_kg,omitempty"`
}

type ActionPlan struct {
	ID               string          `json:"id"`
	EntityID         string          `json:"entity_id,omitempty"`
	EntityName       string          `json:"entity_name"`
	IssueType        IssueType       `json:"issue_type"`
	ProblemStatement string          `json:"problem_statement"`
	RootCauses       []string        `json:"root_causes"`
	Actions          []PlanAction    `json:"actions"`
	ExpectedOutcome  ExpectedOutcome `json:"expected_outcome"`
	MonitoringPlan   []string        `json:"monitoring_plan"`
	GeneratedOn      time.Time       `json:"generated_on"`
	TargetCompletion time.Time       `json:"target_completion"`
	Status           PlanStatus      `json:"status"`
}

// Advance moves the plan to the next status. Owned by the reporting layer.
func (p *ActionPlan) Advance(next PlanStatus) error {
	if !p.Status.CanAdvance(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}
