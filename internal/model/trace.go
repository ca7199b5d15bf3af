package model

import "time"

// DecisionAction is what the discretion engine chose to do on a turn.
type DecisionAction string

const (
	ActionProbe DecisionAction = "probe"
	ActionStop  DecisionAction = "stop"
)

// Decision is the outcome of one discretion engine turn for an incident.
type Decision struct {
	Action           DecisionAction `json:"action"`
	State            IncidentState  `json:"state"`
	StopReason       string         `json:"stopReason,omitempty"`
	Question         string         `json:"question,omitempty"`
	TargetAnchors    []FactKey      `json:"targetAnchors,omitempty"`
	Tone             Tone           `json:"tone,omitempty"`
	Severity         Severity       `json:"severity,omitempty"`
	FlaggedForReview bool           `json:"flaggedForReview,omitempty"`
}

// DecisionTrace is one persisted audit record of a discretion step. At
// MINIMAL verbosity only terminal transitions are written; STANDARD writes
// every probe step.
type DecisionTrace struct {
	ID                  string         `json:"id" bson:"_id,omitempty"`
	TraceID             string         `json:"traceId" bson:"traceId"`
	SessionID           string         `json:"sessionId" bson:"sessionId"`
	IncidentID          string         `json:"incidentId" bson:"incidentId"`
	Action              DecisionAction `json:"action" bson:"action"`
	State               IncidentState  `json:"state" bson:"state"`
	StopReason          string         `json:"stopReason,omitempty" bson:"stopReason,omitempty"`
	ProbeCount          int            `json:"probeCount" bson:"probeCount"`
	NonSubstantiveCount int            `json:"nonSubstantiveCount" bson:"nonSubstantiveCount"`
	MissingBefore       []FactKey      `json:"missingBefore,omitempty" bson:"missingBefore,omitempty"`
	MissingAfter        []FactKey      `json:"missingAfter,omitempty" bson:"missingAfter,omitempty"`
	NextQuestion        string         `json:"nextQuestion,omitempty" bson:"nextQuestion,omitempty"`
	CreatedAt           time.Time      `json:"createdAt" bson:"createdAt"`
}
