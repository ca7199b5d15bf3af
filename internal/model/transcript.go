package model

import "time"

// Role is the speaker of a transcript entry
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// MessageType is the closed set of transcript entry variants. Legacy
// stringly-typed kinds from older snapshots are migrated onto this enum at
// the store-read boundary; see NormalizeMessageType.
type MessageType string

const (
	MessageWelcome        MessageType = "WELCOME"
	MessageQuestionRender MessageType = "QUESTION_RENDER"
	MessageClarifier      MessageType = "CLARIFIER"
	MessageAnswer         MessageType = "ANSWER"
	MessageResume         MessageType = "RESUME"
	MessageIncidentOpened MessageType = "INCIDENT_OPENED"
	MessageIncidentClosed MessageType = "INCIDENT_CLOSED"
	MessageSystemEvent    MessageType = "SYSTEM_EVENT"
	MessageLegacy         MessageType = "LEGACY"
)

// legacyMessageTypes maps message kinds written by earlier snapshot formats
// onto the canonical enum.
var legacyMessageTypes = map[string]MessageType{
	"welcome":                         MessageWelcome,
	"question_render":                 MessageQuestionRender,
	"deterministic_followup_question": MessageClarifier,
	"v2_pack_followup":                MessageClarifier,
	"clarifier":                       MessageClarifier,
	"candidate_answer":                MessageAnswer,
	"resume_marker":                   MessageResume,
	"system_event":                    MessageSystemEvent,
}

// NormalizeMessageType resolves a stored message type string to the
// canonical enum. Canonical values pass through; known legacy names are
// migrated; anything else becomes MessageLegacy so old snapshots never
// fail to load.
func NormalizeMessageType(raw string) MessageType {
	switch MessageType(raw) {
	case MessageWelcome, MessageQuestionRender, MessageClarifier, MessageAnswer,
		MessageResume, MessageIncidentOpened, MessageIncidentClosed, MessageSystemEvent:
		return MessageType(raw)
	}
	if mt, ok := legacyMessageTypes[raw]; ok {
		return mt
	}
	return MessageLegacy
}

// TranscriptEntry is one append-only record in a session's canonical
// transcript. Indices are strictly increasing and never reused. The
// deterministic ID, when present, makes re-entrant appends idempotent
// (e.g. "welcome-<sessionId>").
type TranscriptEntry struct {
	ID                 string         `json:"id,omitempty" bson:"id,omitempty"`
	Index              int            `json:"index" bson:"index"`
	Role               Role           `json:"role" bson:"role"`
	Text               string         `json:"text,omitempty" bson:"text,omitempty"`
	Timestamp          time.Time      `json:"timestamp" bson:"timestamp"`
	VisibleToCandidate bool           `json:"visibleToCandidate" bson:"visibleToCandidate"`
	MessageType        MessageType    `json:"messageType" bson:"messageType"`
	UIVariant          string         `json:"uiVariant,omitempty" bson:"uiVariant,omitempty"`
	Meta               map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// NextIndex returns max(existing indices) + 1. Entries deleted or filtered
// elsewhere never free their index for reuse.
func NextIndex(entries []TranscriptEntry) int {
	next := 0
	for _, e := range entries {
		if e.Index >= next {
			next = e.Index + 1
		}
	}
	return next
}

// HasEntryID reports whether an entry with the given deterministic ID exists.
func HasEntryID(entries []TranscriptEntry, id string) bool {
	if id == "" {
		return false
	}
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// CountMessageType counts entries of one message type.
func CountMessageType(entries []TranscriptEntry, mt MessageType) int {
	n := 0
	for _, e := range entries {
		if e.MessageType == mt {
			n++
		}
	}
	return n
}

// TranscriptSelfCheck is the minimum acceptance bar for transcript
// correctness: exactly one welcome, no duplicate deterministic IDs, and the
// visible/audit split.
type TranscriptSelfCheck struct {
	EntryCount     int      `json:"entryCount"`
	WelcomeCount   int      `json:"welcomeCount"`
	DuplicateIDs   []string `json:"duplicateIds,omitempty"`
	VisibleCount   int      `json:"visibleCount"`
	AuditOnlyCount int      `json:"auditOnlyCount"`
	Monotonic      bool     `json:"monotonic"`
}

// OK reports whether the transcript passes all integrity checks.
func (sc TranscriptSelfCheck) OK() bool {
	return sc.WelcomeCount <= 1 && len(sc.DuplicateIDs) == 0 && sc.Monotonic
}

// SelfCheckTranscript derives the integrity summary for a transcript in
// append order.
func SelfCheckTranscript(entries []TranscriptEntry) TranscriptSelfCheck {
	sc := TranscriptSelfCheck{EntryCount: len(entries), Monotonic: true}
	seen := make(map[string]int)
	lastIndex := -1
	for _, e := range entries {
		if e.MessageType == MessageWelcome {
			sc.WelcomeCount++
		}
		if e.VisibleToCandidate {
			sc.VisibleCount++
		} else {
			sc.AuditOnlyCount++
		}
		if e.ID != "" {
			seen[e.ID]++
			if seen[e.ID] == 2 {
				sc.DuplicateIDs = append(sc.DuplicateIDs, e.ID)
			}
		}
		if e.Index <= lastIndex {
			sc.Monotonic = false
		}
		lastIndex = e.Index
	}
	return sc
}
