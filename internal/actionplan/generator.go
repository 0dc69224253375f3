// Package actionplan turns detected issue types into structured remediation
// plans.
package actionplan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

const (
	// TargetHorizon is added to the generation date for the target completion.
	TargetHorizon = 30 * 24 * time.Hour
	// CarbonKgPerKWh is the grid emission factor used for carbon estimates.
	CarbonKgPerKWh = 0.4
)

// planNamespace scopes plan ids so regenerating a plan yields the same id.
var planNamespace = uuid.MustParse("6b4f2a2e-3c1d-5e8a-9b7c-0d1e2f3a4b5c")

// PlanID derives the plan id from the entity, issue type and the UTC calendar
// date of generation. The entity id keys the plan when known, since names need
// not be unique; plans requested by name alone are keyed on the name.
func PlanID(entityID, entityName string, issue domain.IssueType, date time.Time) string {
	entity := "name:" + entityName
	if entityID != "" {
		entity = "id:" + entityID
	}
	key := fmt.Sprintf("%s|%s|%s", entity, issue, date.UTC().Format("2006-01-02"))
	return uuid.NewSHA1(planNamespace, []byte(key)).String()
}

// Generate builds the templated plan for issue on entityName.
func Generate(entityName string, issue domain.IssueType, date time.Time) (*domain.ActionPlan, error) {
	tpl, err := templateFor(issue, entityName)
	if err != nil {
		return nil, err
	}
	day := date.UTC().Truncate(24 * time.Hour)
	return &domain.ActionPlan{
		ID:               PlanID("", entityName, issue, date),
		EntityName:       entityName,
		IssueType:        issue,
		ProblemStatement: tpl.problem,
		RootCauses:       tpl.rootCauses,
		Actions:          tpl.actions,
		ExpectedOutcome:  tpl.outcome,
		MonitoringPlan:   tpl.monitoring,
		GeneratedOn:      day,
		TargetCompletion: day.Add(TargetHorizon),
		Status:           domain.PlanDraft,
	}, nil
}

// GenerateByName parses the wire name of an issue type before generating.
func GenerateByName(entityName, issueType string, date time.Time) (*domain.ActionPlan, error) {
	issue, err := domain.ParseIssueType(issueType)
	if err != nil {
		return nil, err
	}
	return Generate(entityName, issue, date)
}

// GenerateForOpportunity generates the plan for a scanned opportunity and
// fills the expected outcome with its savings figures.
func GenerateForOpportunity(opp domain.Opportunity, date time.Time) (*domain.ActionPlan, error) {
	name := opp.EntityName
	if name == "" {
		name = opp.EntityID
	}
	plan, err := Generate(name, opp.IssueType, date)
	if err != nil {
		return nil, err
	}
	if opp.EntityID != "" {
		plan.EntityID = opp.EntityID
		plan.ID = PlanID(opp.EntityID, name, opp.IssueType, date)
	}
	kwh := opp.PotentialSavingsKWh
	usd := opp.PotentialSavingsUSD.InexactFloat64()
	carbon := kwh * CarbonKgPerKWh
	out := &plan.ExpectedOutcome
	out.EnergySavingsKWh = &kwh
	out.CostSavingsUSD = &usd
	out.CarbonSavingsKg = &carbon
	out.CostNote = fmt.Sprintf("about $%s over the scanned period, payback in %d days",
		opp.PotentialSavingsUSD.StringFixed(2), opp.ROIDays)
	out.CarbonNote = fmt.Sprintf("about %.0f kg CO2e avoided at %.1f kg/kWh", carbon, CarbonKgPerKWh)
	return plan, nil
}
