package model

import "strings"

// Label is the outcome of verifying a sub-claim
type Label string

const (
	LabelTrue         Label = "TRUE"
	LabelFalse        Label = "FALSE"
	LabelUndetermined Label = "CANNOT_BE_DETERMINED"
)

// ParseLabel normalizes a model-supplied verdict label.
// Anything outside the known domain maps to LabelUndetermined.
func ParseLabel(raw string) Label {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch Label(s) {
	case LabelTrue, LabelFalse, LabelUndetermined:
		return Label(s)
	default:
		return LabelUndetermined
	}
}

// Valid reports whether l is one of the three known labels
func (l Label) Valid() bool {
	switch l {
	case LabelTrue, LabelFalse, LabelUndetermined:
		return true
	}
	return false
}

// Verdict is the synthesized outcome for one sub-claim
type Verdict struct {
	SubClaimID           string     `json:"sub_claim_id"`
	ClaimText            string     `json:"claim"`
	Label                Label      `json:"overall_verdict"`
	Explanation          string     `json:"explanation"`
	Evidence             []Evidence `json:"main_evidence"`
	ApprovedForMaterials bool       `json:"pass_to_materials_agent"`
	Fallback             bool       `json:"fallback,omitempty"` // Built by a fallback path, not parsed
}

// UndeterminedVerdict is the default used whenever no structured verdict exists
func UndeterminedVerdict(sc SubClaim, explanation string) Verdict {
	return Verdict{
		SubClaimID:  sc.ID,
		ClaimText:   sc.Text,
		Label:       LabelUndetermined,
		Explanation: explanation,
		Evidence:    []Evidence{},
		Fallback:    true,
	}
}

// Approved filters verdicts cleared for materials planning
func Approved(verdicts []Verdict) []Verdict {
	var out []Verdict
	for _, v := range verdicts {
		if v.ApprovedForMaterials {
			out = append(out, v)
		}
	}
	return out
}
