package model

import "time"

// Topic is the broad subject area of a follow-up pack, used to pick
// tone and severity defaults.
type Topic string

const (
	TopicPriorApps  Topic = "prior_apps"
	TopicViolenceDV Topic = "violence_dv"
	TopicDUIDrugs   Topic = "dui_drugs"
	TopicDriving    Topic = "driving"
	TopicGeneral    Topic = "general"
)

// FactAnchor is a named fact type attached to a pack, with an extraction
// priority. Lower priority values are asked about first.
type FactAnchor struct {
	Key                FactKey `json:"key" bson:"key"`
	Priority           int     `json:"priority" bson:"priority"`
	MultiInstanceAware bool    `json:"multiInstanceAware" bson:"multiInstanceAware"`
}

// PackQuestion is a legacy deterministic follow-up question. Packs without
// fact anchors fall back to these.
type PackQuestion struct {
	Code   string `json:"code" bson:"code"`
	Prompt string `json:"prompt" bson:"prompt"`
}

// FollowUpPack is a question bundle triggered by a "Yes" answer. A pack may
// be legacy (deterministic questions only) or fact-model based (anchors).
type FollowUpPack struct {
	ID          string         `json:"id" bson:"_id,omitempty"`
	PackID      string         `json:"packId" bson:"packId"`
	Title       string         `json:"title" bson:"title"`
	CategoryID  string         `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	FactAnchors []FactAnchor   `json:"fact_anchors" bson:"fact_anchors"`
	Questions   []PackQuestion `json:"questions,omitempty" bson:"questions,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// AnchorState is the split of a pack's anchors into collected and missing,
// both held in ascending priority order.
type AnchorState struct {
	Collected []FactAnchor `json:"collectedAnchors"`
	Missing   []FactAnchor `json:"missingAnchors"`
}
