package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"clearquest/internal/cache"
	"clearquest/internal/model"
	"clearquest/internal/repository"
)

var (
	// ErrVisibilityRequired is raised when an assistant entry is appended
	// without an explicit visibility decision. There is no default: silent
	// default-visibility bugs in a legal record are worse than a crash.
	ErrVisibilityRequired = errors.New("assistant transcript entries require explicit visibleToCandidate")

	// ErrSessionNotFound is returned when the target session does not exist.
	ErrSessionNotFound = errors.New("interview session not found")
)

// casRetries bounds optimistic append attempts before giving up on
// confirmation and returning the locally computed transcript.
const casRetries = 5

// AssistantMeta carries the caller-supplied metadata for an assistant
// entry. VisibleToCandidate is a pointer on purpose: nil means the caller
// never decided, which is a contract violation.
type AssistantMeta struct {
	VisibleToCandidate *bool
	MessageType        model.MessageType
	UIVariant          string
	Meta               map[string]any
	ID                 string
}

// AppendResult reports what an append did. Persisted distinguishes a
// confirmed write from a best-effort local result after a store failure.
type AppendResult struct {
	Entry      model.TranscriptEntry
	Transcript []model.TranscriptEntry
	Appended   bool
	Persisted  bool
}

// Transcript is the append-only integrity layer over a session's canonical
// record. Every append re-reads the session, assigns the next monotonic
// index, and compare-and-swaps the array against the transcript version.
type Transcript struct {
	sessions repository.SessionRepo
	cache    cache.SessionCache
}

// NewTranscript creates the transcript integrity service
func NewTranscript(sessions repository.SessionRepo, sessionCache cache.SessionCache) *Transcript {
	return &Transcript{sessions: sessions, cache: sessionCache}
}

// AppendAssistantMessage appends a candidate-facing or audit-only assistant
// entry. Fails fast, before touching the transcript, when visibility was
// not explicitly supplied.
func (t *Transcript) AppendAssistantMessage(ctx context.Context, sessionID, text string, meta AssistantMeta) (*AppendResult, error) {
	if meta.VisibleToCandidate == nil {
		return nil, ErrVisibilityRequired
	}
	mt := meta.MessageType
	if mt == "" {
		mt = model.MessageClarifier
	}
	entry := model.TranscriptEntry{
		ID:                 meta.ID,
		Role:               model.RoleAssistant,
		Text:               text,
		VisibleToCandidate: *meta.VisibleToCandidate,
		MessageType:        mt,
		UIVariant:          meta.UIVariant,
		Meta:               meta.Meta,
	}
	return t.append(ctx, sessionID, entry)
}

// AppendUserMessage records what the candidate said. User entries are
// always candidate-visible.
func (t *Transcript) AppendUserMessage(ctx context.Context, sessionID, text string, meta map[string]any) (*AppendResult, error) {
	entry := model.TranscriptEntry{
		Role:               model.RoleUser,
		Text:               text,
		VisibleToCandidate: true,
		MessageType:        model.MessageAnswer,
		Meta:               meta,
	}
	return t.append(ctx, sessionID, entry)
}

// AppendWelcomeMessage is idempotent: at most one WELCOME entry exists per
// session, keyed by the deterministic ID "welcome-<sessionId>".
func (t *Transcript) AppendWelcomeMessage(ctx context.Context, sessionID, text string) (*AppendResult, error) {
	entry := model.TranscriptEntry{
		ID:                 fmt.Sprintf("welcome-%s", sessionID),
		Role:               model.RoleAssistant,
		Text:               text,
		VisibleToCandidate: true,
		MessageType:        model.MessageWelcome,
	}
	return t.appendIdempotent(ctx, sessionID, entry, func(s *model.InterviewSession) bool {
		return model.HasEntryID(s.Transcript, entry.ID) ||
			model.CountMessageType(s.Transcript, model.MessageWelcome) > 0
	})
}

// AppendResumeMarker is idempotent per resume count: re-running the same
// resume never duplicates its marker, but each distinct resume gets one.
func (t *Transcript) AppendResumeMarker(ctx context.Context, sessionID string) (*AppendResult, error) {
	session, err := t.freshSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resumeID := fmt.Sprintf("resume-%s-%d", sessionID, session.ResumeCount())
	entry := model.TranscriptEntry{
		ID:          resumeID,
		Role:        model.RoleSystem,
		MessageType: model.MessageResume,
		Meta:        map[string]any{"resumeCount": session.ResumeCount()},
	}
	return t.appendIdempotent(ctx, sessionID, entry, func(s *model.InterviewSession) bool {
		return model.HasEntryID(s.Transcript, resumeID)
	})
}

// LogSystemEvent records an audit-only event. It always re-reads the
// session fresh rather than trusting any cached copy.
func (t *Transcript) LogSystemEvent(ctx context.Context, sessionID string, eventType model.MessageType, meta map[string]any) (*AppendResult, error) {
	entry := model.TranscriptEntry{
		Role:               model.RoleSystem,
		VisibleToCandidate: false,
		MessageType:        eventType,
		Meta:               meta,
	}
	return t.append(ctx, sessionID, entry)
}

// SelfCheck derives the integrity summary for a session's transcript.
func (t *Transcript) SelfCheck(ctx context.Context, sessionID string) (*model.TranscriptSelfCheck, error) {
	session, err := t.freshSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sc := model.SelfCheckTranscript(session.Transcript)
	return &sc, nil
}

// append runs idempotency-free appends through the CAS loop.
func (t *Transcript) append(ctx context.Context, sessionID string, entry model.TranscriptEntry) (*AppendResult, error) {
	return t.appendIdempotent(ctx, sessionID, entry, func(s *model.InterviewSession) bool {
		return model.HasEntryID(s.Transcript, entry.ID)
	})
}

// appendIdempotent reads the session fresh, checks the skip predicate,
// assigns the next index, and compare-and-swaps. Version conflicts retry
// with the fresh document; a store failure after retries returns the
// locally computed transcript marked unconfirmed.
func (t *Transcript) appendIdempotent(ctx context.Context, sessionID string, entry model.TranscriptEntry, skip func(*model.InterviewSession) bool) (*AppendResult, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		session, err := t.freshSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if skip != nil && skip(session) {
			return &AppendResult{Transcript: session.Transcript, Appended: false, Persisted: true}, nil
		}

		entry.Index = model.NextIndex(session.Transcript)
		entry.Timestamp = time.Now()
		updated := append(append([]model.TranscriptEntry{}, session.Transcript...), entry)

		err = t.sessions.AppendTranscript(ctx, sessionID, updated, session.TranscriptVersion)
		if err == nil {
			t.invalidateCache(ctx, sessionID)
			return &AppendResult{Entry: entry, Transcript: updated, Appended: true, Persisted: true}, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			lastErr = err
			continue
		}

		// Store failure: return the local result as best effort, per the
		// availability-over-strictness posture of the persistence boundary.
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err,
		}).Error("transcript append not confirmed")
		return &AppendResult{Entry: entry, Transcript: updated, Appended: true, Persisted: false}, nil
	}
	return nil, fmt.Errorf("transcript append contended after %d attempts: %w", casRetries, lastErr)
}

func (t *Transcript) freshSession(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	session, err := t.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (t *Transcript) invalidateCache(ctx context.Context, sessionID string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Delete(ctx, sessionID); err != nil {
		logrus.WithField("session_id", sessionID).Warn("failed to invalidate session cache")
	}
}
