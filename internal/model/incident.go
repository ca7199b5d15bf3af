package model

import (
	"fmt"
	"strings"
	"time"
)

// IncidentState is the discretion state machine position for one incident.
// COLLECTING is initial; every STOP_* state is terminal.
type IncidentState string

const (
	IncidentCollecting         IncidentState = "COLLECTING"
	IncidentStopComplete       IncidentState = "STOP_COMPLETE"
	IncidentStopBudget         IncidentState = "STOP_BUDGET_EXHAUSTED"
	IncidentStopNonSubstantive IncidentState = "STOP_NONSUBSTANTIVE_EXCEEDED"
	IncidentStopError          IncidentState = "STOP_ERROR_FALLBACK"
)

// Stop reasons recorded on terminal transitions
const (
	StopReasonComplete         = "mandatory_facts_complete"
	StopReasonAnchorsExhausted = "anchors_exhausted"
	StopReasonBudgetExhausted  = "probe_budget_exhausted"
	StopReasonNonSubstantive   = "non_substantive_threshold"
	StopReasonErrorFallback    = "extraction_error_fallback"
	StopReasonErrorFlagged     = "extraction_error_flagged"
)

// Incident is one disclosed occurrence of a category of event, tracked
// independently of the question that triggered it. Owned by exactly one
// interview session.
type Incident struct {
	ID               string        `json:"incidentId" bson:"incidentId"`
	CategoryID       string        `json:"categoryId" bson:"categoryId"`
	QuestionCode     string        `json:"questionCode" bson:"questionCode"`
	QuestionID       string        `json:"questionId" bson:"questionId"`
	InstanceNumber   int           `json:"instanceNumber" bson:"instanceNumber"`
	PackID           string        `json:"packId,omitempty" bson:"packId,omitempty"`
	State            IncidentState `json:"state" bson:"state"`
	FactState        FactState     `json:"factState" bson:"factState"`
	FlaggedForReview bool          `json:"flaggedForReview,omitempty" bson:"flaggedForReview,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// NewIncident creates an incident with a fresh fact state. The ID combines
// category, question code, instance number and creation time so that two
// instances of the same incident type never collide, and recurring
// disclosures across sessions stay distinguishable.
func NewIncident(categoryID, questionCode, questionID string, instance int, fm *FactModel) *Incident {
	if instance < 1 {
		instance = 1
	}
	now := time.Now()
	id := fmt.Sprintf("inc_%s_%s_%d_%d",
		strings.ToLower(categoryID), strings.ToLower(questionCode), instance, now.UnixMilli())
	return &Incident{
		ID:             id,
		CategoryID:     categoryID,
		QuestionCode:   questionCode,
		QuestionID:     questionID,
		InstanceNumber: instance,
		State:          IncidentCollecting,
		FactState:      NewFactState(fm),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Terminal reports whether the incident has reached a STOP_* state.
func (i *Incident) Terminal() bool {
	return i.State != IncidentCollecting && i.State != ""
}

// Stop transitions the incident to a terminal state and records why.
// The completion stop carries its reason for audit parity even though the
// incident finished by collecting everything.
func (i *Incident) Stop(state IncidentState, reason string) {
	i.State = state
	i.FactState.StopReason = reason
	if state == IncidentStopNonSubstantive || state == IncidentStopError {
		i.FactState.CompletionStatus = CompletionBlocked
	}
	i.UpdatedAt = time.Now()
}
