package model

import (
	"strings"
	"time"
)

// FactKey identifies a single extractable fact (e.g. "agency_name", "month_year").
type FactKey string

// CompletionStatus tracks whether an incident's mandatory facts are collected
type CompletionStatus string

const (
	CompletionIncomplete CompletionStatus = "incomplete"
	CompletionComplete   CompletionStatus = "complete"
	CompletionBlocked    CompletionStatus = "blocked"
)

// Severity is the coarse risk tier assigned to an incident
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityLaxed    Severity = "LAXED"
	SeverityStandard Severity = "STANDARD"
	SeverityStrict   Severity = "STRICT"
)

// NormalizeSeverity maps legacy severity labels from older config versions
// onto the canonical 3-level enum.
func NormalizeSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LAXED", "LOW", "RELAXED":
		return SeverityLaxed
	case "STANDARD", "MODERATE", "MEDIUM":
		return SeverityStandard
	case "STRICT", "ELEVATED", "HIGH":
		return SeverityStrict
	default:
		return SeverityNone
	}
}

// FactModel is the admin-configured schema of facts required for one
// incident category. Read-only at interview time.
type FactModel struct {
	ID                string    `json:"id" bson:"_id,omitempty"`
	CategoryID        string    `json:"categoryId" bson:"categoryId"`
	CategoryLabel     string    `json:"categoryLabel" bson:"categoryLabel"`
	MandatoryFacts    []FactKey `json:"mandatoryFacts" bson:"mandatoryFacts"`
	OptionalFacts     []FactKey `json:"optionalFacts" bson:"optionalFacts"`
	SeverityFacts     []FactKey `json:"severityFacts" bson:"severityFacts"`
	ReadyForAIProbing bool      `json:"isReadyForAiProbing" bson:"isReadyForAiProbing"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AllFactKeys returns the union of mandatory, optional and severity facts.
// A key listed in more than one set (a config mistake) is merged to one entry.
func (fm *FactModel) AllFactKeys() []FactKey {
	if fm == nil {
		return nil
	}
	seen := make(map[FactKey]bool)
	keys := make([]FactKey, 0, len(fm.MandatoryFacts)+len(fm.OptionalFacts)+len(fm.SeverityFacts))
	for _, group := range [][]FactKey{fm.MandatoryFacts, fm.OptionalFacts, fm.SeverityFacts} {
		for _, k := range group {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// FactState is the per-incident mutable record of collected fact values.
// An empty string value means the fact has not been collected.
type FactState struct {
	Facts               map[FactKey]string `json:"facts" bson:"facts"`
	CompletionStatus    CompletionStatus   `json:"completionStatus" bson:"completionStatus"`
	Severity            Severity           `json:"severity,omitempty" bson:"severity,omitempty"`
	ProbeCount          int                `json:"probeCount" bson:"probeCount"`
	NonSubstantiveCount int                `json:"nonSubstantiveCount" bson:"nonSubstantiveCount"`
	StopReason          string             `json:"stopReason,omitempty" bson:"stopReason,omitempty"`
}

// NewFactState builds the initial state for a category: one empty entry per
// fact key. A nil fact model degrades to an empty-but-valid state, meaning
// no facts are required for the incident.
func NewFactState(fm *FactModel) FactState {
	facts := make(map[FactKey]string)
	for _, k := range fm.AllFactKeys() {
		facts[k] = ""
	}
	return FactState{
		Facts:            facts,
		CompletionStatus: CompletionIncomplete,
	}
}

// MissingFacts returns every mandatory fact key whose value is still empty,
// in the fact model's declared order. A nil facts map counts as a full miss.
func MissingFacts(fm *FactModel, fs FactState) []FactKey {
	if fm == nil {
		return nil
	}
	missing := make([]FactKey, 0, len(fm.MandatoryFacts))
	for _, k := range fm.MandatoryFacts {
		if fs.Facts == nil || strings.TrimSpace(fs.Facts[k]) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// CollectedFacts filters the state down to facts with real values.
func CollectedFacts(fs FactState) map[FactKey]string {
	collected := make(map[FactKey]string)
	for k, v := range fs.Facts {
		if strings.TrimSpace(v) != "" {
			collected[k] = v
		}
	}
	return collected
}

// MandatoryComplete reports whether every mandatory fact has a value.
func MandatoryComplete(fm *FactModel, fs FactState) bool {
	return len(MissingFacts(fm, fs)) == 0
}

// CompletionPercent returns 0-100, rounded. An incident whose category
// requires no mandatory facts is trivially complete.
func CompletionPercent(fm *FactModel, fs FactState) int {
	if fm == nil || len(fm.MandatoryFacts) == 0 {
		return 100
	}
	total := len(fm.MandatoryFacts)
	done := total - len(MissingFacts(fm, fs))
	return int(float64(done)/float64(total)*100 + 0.5)
}

// SeverityFactsComplete reports whether every severity fact has a value.
func SeverityFactsComplete(fm *FactModel, fs FactState) bool {
	if fm == nil {
		return false
	}
	if len(fm.SeverityFacts) == 0 {
		return false
	}
	for _, k := range fm.SeverityFacts {
		if fs.Facts == nil || strings.TrimSpace(fs.Facts[k]) == "" {
			return false
		}
	}
	return true
}

// RecomputeCompletion updates CompletionStatus from the current facts map.
// Blocked states are sticky: a blocked incident stays blocked.
func (fs *FactState) RecomputeCompletion(fm *FactModel) {
	if fs.CompletionStatus == CompletionBlocked {
		return
	}
	if MandatoryComplete(fm, *fs) {
		fs.CompletionStatus = CompletionComplete
	} else {
		fs.CompletionStatus = CompletionIncomplete
	}
}
