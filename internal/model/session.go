package model

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// InterviewSession owns every incident and the canonical transcript for one
// candidate interview. TranscriptVersion is the optimistic concurrency
// counter for transcript appends: writers compare-and-swap on it so two
// near-simultaneous appenders cannot clobber each other's entries.
type InterviewSession struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	CandidateID       string            `json:"candidateId" bson:"candidateId"`
	DepartmentID      string            `json:"departmentId,omitempty" bson:"departmentId,omitempty"`
	Status            SessionStatus     `json:"status" bson:"status"`
	Incidents         []Incident        `json:"incidents" bson:"incidents"`
	Transcript        []TranscriptEntry `json:"transcript_snapshot" bson:"transcript_snapshot"`
	TranscriptVersion int64             `json:"transcriptVersion" bson:"transcriptVersion"`
	StartedAt         time.Time         `json:"startedAt" bson:"startedAt"`
	EndedAt           *time.Time        `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	UpdatedAt         time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// IncidentByID finds an incident owned by the session, or nil.
func (s *InterviewSession) IncidentByID(id string) *Incident {
	for i := range s.Incidents {
		if s.Incidents[i].ID == id {
			return &s.Incidents[i]
		}
	}
	return nil
}

// InstanceCount returns how many incidents of a category the session
// already holds, used to assign the next instance number.
func (s *InterviewSession) InstanceCount(categoryID string) int {
	n := 0
	for i := range s.Incidents {
		if s.Incidents[i].CategoryID == categoryID {
			n++
		}
	}
	return n
}

// ResumeCount counts prior resume markers in the transcript.
func (s *InterviewSession) ResumeCount() int {
	return CountMessageType(s.Transcript, MessageResume)
}
