package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IssueType identifies a class of energy-waste pattern.
type IssueType int

const (
	IssueExcessiveIdle IssueType = iota
	IssueInefficientScheduling
	IssueBaselineDrift
	IssueSuboptimalSetpoints

	issueTypeCount
)

// Adding an issue type without updating this count (and the plan templates keyed
// on it) fails to compile.
const IssueTypeCount = int(issueTypeCount)

var _ = [1]struct{}{}[IssueTypeCount-4]

var issueTypeNames = [IssueTypeCount]string{
	IssueExcessiveIdle:         "excessive_idle",
	IssueInefficientScheduling: "inefficient_scheduling",
	IssueBaselineDrift:         "baseline_drift",
	IssueSuboptimalSetpoints:   "suboptimal_setpoints",
}

// AllIssueTypes lists every issue type in declaration order.
func AllIssueTypes() []IssueType {
	out := make([]IssueType, IssueTypeCount)
	for i := range out {
		out[i] = IssueType(i)
	}
	return out
}

func (t IssueType) String() string {
	if t < 0 || int(t) >= IssueTypeCount {
		return "unknown"
	}
	return issueTypeNames[t]
}

func (t IssueType) Valid() bool { return t >= 0 && int(t) < IssueTypeCount }

// ParseIssueType maps the wire name of an issue type. Unknown names are an error,
// never a generic fallback.
func ParseIssueType(s string) (IssueType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range issueTypeNames {
		if name == key {
			return IssueType(i), nil
		}
	}
	return 0, &UnknownIssueTypeError{IssueType: s}
}

func (t IssueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &UnknownIssueTypeError{IssueType: t.String()}
	}
	return []byte(t.String()), nil
}

func (t *IssueType) UnmarshalText(b []byte) error {
	v, err := ParseIssueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type EffortTier string

const (
	EffortLow    EffortTier = "low"
	EffortMedium EffortTier = "medium"
	EffortHigh   EffortTier = "high"
)

// Opportunity is one ranked improvement finding from a scan.
type Opportunity struct {
	Rank                int             `json:"rank"`
	EntityID            string          `json:"entity_id"`
	EntityName          string          `json:"entity_name"`
	IssueType           IssueType       `json:"issue_type"`
	Description         string          `json:"description"`
	RecommendedAction   string          `json:"recommended_action"`
	PotentialSavingsKWh float64         `json:"potential_savings_kwh"`
	PotentialSavingsUSD decimal.Decimal `json:"potential_savings_usd"`
	EffortTier          EffortTier      `json:"effort_tier"`
	ROIDays             int             `json:"roi_days"`
	Evidence            float64         `json:"evidence"`
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
}
