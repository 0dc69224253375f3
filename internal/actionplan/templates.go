package actionplan

import (
	"fmt"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

type template struct {
	problem    string
	rootCauses []string
	actions    []domain.PlanAction
	outcome    domain.ExpectedOutcome
	monitoring []string
}

// templateFor returns a fresh template; callers may mutate the result.
// Every issue type needs a case here, TestEveryIssueTypeHasTemplate enforces it.
func templateFor(issue domain.IssueType, entity string) (template, error) {
	switch issue {
	case domain.IssueExcessiveIdle:
		return template{
			problem: fmt.Sprintf("%s spends a large share of the period powered but idle.", entity),
			rootCauses: []string{
				"No automatic shutdown after production stops",
				"Operators leave equipment on between batches",
				"Standby mode disabled or misconfigured",
			},
			actions: []domain.PlanAction{
				{Priority: 1, Description: "Enable or install automatic shutdown after an idle timeout", ResponsibleParty: "Maintenance", TimelineDays: 7, Resources: []string{"controls technician", "PLC access"}},
				{Priority: 2, Description: "Add an end-of-shift shutdown step to the operator checklist", ResponsibleParty: "Production supervisor", TimelineDays: 3, Resources: []string{"shift checklist"}},
				{Priority: 3, Description: "Verify standby settings against the manufacturer manual", ResponsibleParty: "Energy manager", TimelineDays: 14, Resources: []string{"equipment manual"}},
			},
			outcome: domain.ExpectedOutcome{
				EnergyReductionPct: 15,
				CostNote:           "savings scale with idle hours removed",
				CarbonNote:         "proportional to avoided idle energy",
			},
			monitoring: []string{
				"Track idle share of hours weekly",
				"Confirm shutdown events appear in the meter data",
				"Re-run the opportunity scan after 30 days",
			},
		}, nil
	case domain.IssueInefficientScheduling:
		return template{
			problem: fmt.Sprintf("%s consumes a high share of its energy at night and on weekends.", entity),
			rootCauses: []string{
				"Equipment runs on a fixed schedule regardless of production",
				"No setback during non-production hours",
				"Manual overrides left active",
			},
			actions: []domain.PlanAction{
				{Priority: 1, Description: "Program a time-based setback for nights and weekends", ResponsibleParty: "Controls engineer", TimelineDays: 10, Resources: []string{"BMS or PLC scheduler"}},
				{Priority: 2, Description: "Align run schedule with the production calendar", ResponsibleParty: "Production planning", TimelineDays: 14, Resources: []string{"production calendar"}},
				{Priority: 3, Description: "Audit and clear manual overrides", ResponsibleParty: "Maintenance", TimelineDays: 5, Resources: []string{"override log"}},
			},
			outcome: domain.ExpectedOutcome{
				EnergyReductionPct: 20,
				CostNote:           "savings from off-hours consumption above the necessary baseline",
				CarbonNote:         "proportional to avoided off-hours energy",
			},
			monitoring: []string{
				"Track off-hours energy share weekly",
				"Alert on consumption above setback level outside production hours",
				"Review schedule after production calendar changes",
			},
		}, nil
	case domain.IssueBaselineDrift:
		return template{
			problem: fmt.Sprintf("%s consumption has drifted upward against its earlier baseline.", entity),
			rootCauses: []string{
				"Mechanical wear or fouling",
				"Leaks in compressed air, steam or hydraulic lines",
				"Control setpoints changed without review",
				"Production mix changed between the compared periods",
			},
			actions: []domain.PlanAction{
				{Priority: 1, Description: "Inspect for wear, leaks and fouling", ResponsibleParty: "Maintenance", TimelineDays: 7, Resources: []string{"inspection checklist", "ultrasonic leak detector"}},
				{Priority: 2, Description: "Compare current setpoints with commissioning values", ResponsibleParty: "Controls engineer", TimelineDays: 10, Resources: []string{"commissioning records"}},
				{Priority: 3, Description: "Schedule corrective maintenance for findings", ResponsibleParty: "Maintenance planner", TimelineDays: 21, Resources: []string{"spare parts", "maintenance window"}},
				{Priority: 4, Description: "Retrain the baseline if the production mix changed", ResponsibleParty: "Energy manager", TimelineDays: 30, Resources: []string{"12 months of data"}},
			},
			outcome: domain.ExpectedOutcome{
				EnergyReductionPct: 10,
				CostNote:           "savings from restoring the earlier consumption level",
				CarbonNote:         "proportional to the recovered drift",
			},
			monitoring: []string{
				"Evaluate daily deviation against the baseline",
				"Escalate any SEVERE_DEVIATION period",
				"Repeat drift scan monthly",
			},
		}, nil
	case domain.IssueSuboptimalSetpoints:
		return template{
			problem: fmt.Sprintf("%s operates with setpoints tighter or higher than the process requires.", entity),
			rootCauses: []string{
				"Setpoints raised as a workaround and never restored",
				"Pressure or temperature targets above process need",
				"Wide dead bands causing overshoot",
			},
			actions: []domain.PlanAction{
				{Priority: 1, Description: "Document required process setpoints with production", ResponsibleParty: "Process engineer", TimelineDays: 7, Resources: []string{"process specifications"}},
				{Priority: 2, Description: "Lower setpoints in small steps while monitoring quality", ResponsibleParty: "Controls engineer", TimelineDays: 21, Resources: []string{"quality sign-off"}},
				{Priority: 3, Description: "Lock setpoints behind change control", ResponsibleParty: "Energy manager", TimelineDays: 30, Resources: []string{"change control procedure"}},
			},
			outcome: domain.ExpectedOutcome{
				EnergyReductionPct: 8,
				CostNote:           "savings depend on the setpoint reduction achieved",
				CarbonNote:         "proportional to reduced process load",
			},
			monitoring: []string{
				"Log setpoint changes",
				"Track specific energy per unit produced",
				"Review quality metrics after each step",
			},
		}, nil
	}
	return template{}, &domain.UnknownIssueTypeError{IssueType: issue.String()}
}
