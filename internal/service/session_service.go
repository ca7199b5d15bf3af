package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clearquest/internal/cache"
	"clearquest/internal/config"
	"clearquest/internal/logging"
	"clearquest/internal/model"
	"clearquest/internal/repository"
)

// DisclosureResult is returned after a "Yes" answer is recorded. Exactly
// one of Incident or LegacyQuestions is populated: packs that resolve to a
// fact-model category open an incident; everything else falls back to the
// deterministic pack flow.
type DisclosureResult struct {
	Incident        *model.Incident      `json:"incident,omitempty"`
	LegacyQuestions []model.PackQuestion `json:"legacyQuestions,omitempty"`
	FirstQuestion   string               `json:"firstQuestion,omitempty"`
}

// AnswerResult is returned after a candidate answers a probe.
type AnswerResult struct {
	Decision  *model.Decision `json:"decision"`
	Incident  *model.Incident `json:"incident"`
	Persisted bool            `json:"persisted"`
}

// Sessions orchestrates the interview flow: disclosures open incidents,
// answers run the discretion engine, every visible or audit event lands in
// the transcript.
type Sessions struct {
	repo        repository.SessionRepo
	sessCache   cache.SessionCache
	packs       repository.PackRepo
	configs     repository.ConfigRepo
	configCache cache.ConfigCache
	registry    *Registry
	transcript  *Transcript
	traces      repository.TraceRepo
	broadcaster Broadcaster
	aiConfig    *config.AIExtractorConfig
}

// NewSessions creates the interview flow service
func NewSessions(
	repo repository.SessionRepo,
	sessCache cache.SessionCache,
	packs repository.PackRepo,
	configs repository.ConfigRepo,
	configCache cache.ConfigCache,
	registry *Registry,
	transcript *Transcript,
	traces repository.TraceRepo,
	aiConfig *config.AIExtractorConfig,
) *Sessions {
	return &Sessions{
		repo:        repo,
		sessCache:   sessCache,
		packs:       packs,
		configs:     configs,
		configCache: configCache,
		registry:    registry,
		transcript:  transcript,
		traces:      traces,
		aiConfig:    aiConfig,
	}
}

// SetBroadcaster wires the WebSocket hub after construction (avoids an
// import cycle, same as the transport setup).
func (s *Sessions) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

const welcomeText = "Welcome to your background interview. Please answer every question completely and truthfully."

// CreateSession starts a new interview session and appends the single
// welcome message.
func (s *Sessions) CreateSession(ctx context.Context, candidateID, departmentID string) (*model.InterviewSession, error) {
	session := &model.InterviewSession{
		ID:           "sess_" + uuid.New().String(),
		CandidateID:  candidateID,
		DepartmentID: departmentID,
		Status:       model.SessionActive,
		Incidents:    []model.Incident{},
		Transcript:   []model.TranscriptEntry{},
		StartedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if _, err := s.transcript.AppendWelcomeMessage(ctx, session.ID, welcomeText); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, session.ID)
}

// GetSession loads a session, preferring the cache.
func (s *Sessions) GetSession(ctx context.Context, id string) (*model.InterviewSession, error) {
	if s.sessCache != nil {
		if cached, err := s.sessCache.Get(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if s.sessCache != nil {
		if err := s.sessCache.Set(ctx, session); err != nil {
			logrus.WithField("session_id", id).Warn("failed to cache session")
		}
	}
	return session, nil
}

// ListSessions returns every session for the admin panels.
func (s *Sessions) ListSessions(ctx context.Context) ([]*model.InterviewSession, error) {
	return s.repo.List(ctx)
}

// RecordDisclosure handles a "Yes" answer: pack lookup, category
// resolution, incident creation seeded from the fact model. A pack with no
// category mapping (or a category disabled for probing) falls back to the
// legacy deterministic pack flow.
func (s *Sessions) RecordDisclosure(ctx context.Context, sessionID, questionID, questionCode, packID string) (*DisclosureResult, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	pack, err := s.packs.GetByPackID(ctx, packID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.discretionConfig(ctx)
	if err != nil {
		return nil, err
	}

	categoryID, ok := MapPackIDToCategory(packID)
	useFactModel := ok &&
		cfg.InterviewMode != model.ModeDeterministic &&
		cfg.CategoryEnabled(categoryID)

	if !useFactModel {
		return s.legacyDisclosure(ctx, sessionID, packID, pack)
	}

	fm, err := s.registry.FactModelForCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	instance := session.InstanceCount(categoryID) + 1
	incident := model.NewIncident(categoryID, questionCode, questionID, instance, fm)
	incident.PackID = packID

	session.Incidents = append(session.Incidents, *incident)
	if err := s.repo.UpdateIncidents(ctx, sessionID, session.Incidents); err != nil {
		return nil, fmt.Errorf("failed to persist incident: %w", err)
	}
	s.invalidateCache(ctx, sessionID)

	_, err = s.transcript.LogSystemEvent(ctx, sessionID, model.MessageIncidentOpened, map[string]any{
		"incidentId": incident.ID,
		"categoryId": categoryID,
		"packId":     packID,
		"instance":   instance,
	})
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(sessionID, "incident_opened", incident)
	}
	logging.WithIncident(sessionID, incident.ID).WithFields(logrus.Fields{
		"category": categoryID,
		"pack":     packID,
	}).Info("incident opened")

	return &DisclosureResult{Incident: incident}, nil
}

// legacyDisclosure answers with the pack's deterministic questions.
func (s *Sessions) legacyDisclosure(ctx context.Context, sessionID, packID string, pack *model.FollowUpPack) (*DisclosureResult, error) {
	result := &DisclosureResult{}
	if pack != nil {
		result.LegacyQuestions = pack.Questions
		if len(pack.Questions) > 0 {
			result.FirstQuestion = pack.Questions[0].Prompt
		}
	}
	_, err := s.transcript.LogSystemEvent(ctx, sessionID, model.MessageSystemEvent, map[string]any{
		"event":  "legacy_pack_flow",
		"packId": packID,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitAnswer runs one probing turn: record the candidate's answer, run
// the discretion engine, persist the updated incident, and append either
// the next clarifier (candidate-visible) or the stop event (audit-only).
func (s *Sessions) SubmitAnswer(ctx context.Context, sessionID, incidentID, answerText string) (*AnswerResult, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	incident := session.IncidentByID(incidentID)
	if incident == nil {
		return nil, fmt.Errorf("incident %s not found in session", incidentID)
	}

	if _, err := s.transcript.AppendUserMessage(ctx, sessionID, answerText, map[string]any{
		"incidentId": incidentID,
	}); err != nil {
		return nil, err
	}

	cfg, err := s.discretionConfig(ctx)
	if err != nil {
		return nil, err
	}
	fm, err := s.registry.FactModelForCategory(ctx, incident.CategoryID)
	if err != nil {
		return nil, err
	}
	pack, err := s.packs.GetByPackID(ctx, incident.PackID)
	if err != nil {
		return nil, err
	}

	engine := NewDiscretion(cfg, s.traces, s.broadcaster)
	extractor := s.extractorFor(cfg, fm, incident.CategoryID)

	decision, err := engine.Decide(ctx, sessionID, incident, fm, pack, answerText, extractor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateIncidents(ctx, sessionID, session.Incidents); err != nil {
		return nil, fmt.Errorf("failed to persist incident state: %w", err)
	}
	s.invalidateCache(ctx, sessionID)

	persisted := true
	switch decision.Action {
	case model.ActionProbe:
		visible := true
		res, err := s.transcript.AppendAssistantMessage(ctx, sessionID, decision.Question, AssistantMeta{
			VisibleToCandidate: &visible,
			MessageType:        model.MessageClarifier,
			Meta: map[string]any{
				"incidentId":    incidentID,
				"targetAnchors": decision.TargetAnchors,
				"tone":          decision.Tone,
			},
		})
		if err != nil {
			return nil, err
		}
		persisted = res.Persisted
	case model.ActionStop:
		res, err := s.transcript.LogSystemEvent(ctx, sessionID, model.MessageIncidentClosed, map[string]any{
			"incidentId": incidentID,
			"state":      decision.State,
			"stopReason": decision.StopReason,
			"flagged":    decision.FlaggedForReview,
		})
		if err != nil {
			return nil, err
		}
		persisted = res.Persisted
	}

	return &AnswerResult{Decision: decision, Incident: incident, Persisted: persisted}, nil
}

// ResumeSession re-enters an abandoned or interrupted session. COLLECTING
// incidents resume from persisted fact state alone; no transient per-turn
// state exists outside the incident record.
func (s *Sessions) ResumeSession(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	if _, err := s.transcript.AppendResumeMarker(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, sessionID, model.SessionActive, nil); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, sessionID)
	return s.GetSession(ctx, sessionID)
}

// CompleteSession marks the interview finished.
func (s *Sessions) CompleteSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, sessionID, model.SessionCompleted, &now); err != nil {
		return err
	}
	s.invalidateCache(ctx, sessionID)
	return nil
}

// discretionConfig loads the policy once per request: cache first, then
// the entity store, then defaults.
func (s *Sessions) discretionConfig(ctx context.Context) (*model.DiscretionConfig, error) {
	if s.configCache != nil {
		if cfg, err := s.configCache.Get(ctx); err == nil && cfg != nil {
			return cfg, nil
		}
	}
	cfg, err := s.configs.GetDiscretionConfig(ctx)
	if err != nil {
		return nil, err
	}
	if s.configCache != nil {
		if err := s.configCache.Set(ctx, cfg); err != nil {
			logrus.Warn("failed to cache discretion config")
		}
	}
	return cfg, nil
}

// extractorFor picks the extractor for a turn. AI extraction requires the
// hybrid or AI mode, a probing-ready fact model, and a configured API key;
// anything else runs the deterministic keyword extractor.
func (s *Sessions) extractorFor(cfg *model.DiscretionConfig, fm *model.FactModel, categoryID string) FactExtractor {
	aiMode := cfg.InterviewMode == model.ModeAIProbing || cfg.InterviewMode == model.ModeHybrid
	if aiMode && fm != nil && fm.ReadyForAIProbing && s.aiConfig != nil && s.aiConfig.Enabled() {
		return NewAIExtractor(s.aiConfig, cfg, categoryID)
	}
	return NewKeywordExtractor(cfg, categoryID)
}

func (s *Sessions) invalidateCache(ctx context.Context, sessionID string) {
	if s.sessCache == nil {
		return
	}
	if err := s.sessCache.Delete(ctx, sessionID); err != nil {
		logrus.WithField("session_id", sessionID).Warn("failed to invalidate session cache")
	}
}
