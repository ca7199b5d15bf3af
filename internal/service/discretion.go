package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clearquest/internal/logging"
	"clearquest/internal/model"
	"clearquest/internal/repository"
)

// Broadcaster pushes live decision events to admin monitors (avoids an
// import cycle with the ws package).
type Broadcaster interface {
	BroadcastToAdmins(sessionID string, msgType string, payload interface{})
}

// Discretion is the policy engine deciding, turn by turn, whether to keep
// probing an incident or stop, and why. Turns are strictly sequential per
// incident: each decision depends on the previous turn's counters, all of
// which live in the persisted fact state.
type Discretion struct {
	config      *model.DiscretionConfig
	clarifier   *Clarifier
	traces      repository.TraceRepo
	broadcaster Broadcaster
}

// NewDiscretion creates the discretion engine with an injected policy.
func NewDiscretion(cfg *model.DiscretionConfig, traces repository.TraceRepo, broadcaster Broadcaster) *Discretion {
	return &Discretion{
		config:      cfg,
		clarifier:   NewClarifier(cfg.Guardrails),
		traces:      traces,
		broadcaster: broadcaster,
	}
}

// Decide runs one turn for an incident: extract facts from the candidate's
// answer, then stop or emit the next clarifier. The incident is mutated in
// place; persisting it is the caller's job.
func (d *Discretion) Decide(ctx context.Context, sessionID string, incident *model.Incident, fm *model.FactModel, pack *model.FollowUpPack, answerText string, extractor FactExtractor) (*model.Decision, error) {
	if incident.Terminal() {
		return d.stoppedDecision(incident), nil
	}

	topic := PackTopic(incident.PackID)
	missingBefore := model.MissingFacts(fm, incident.FactState)

	if d.isNonSubstantive(answerText) {
		incident.FactState.NonSubstantiveCount++
	} else if strings.TrimSpace(answerText) != "" {
		fs, err := extractor.ExtractFacts(ctx, fm, incident.FactState, answerText)
		if err != nil {
			return d.handleExtractionError(ctx, sessionID, incident, fm, err)
		}
		incident.FactState = fs
	}
	incident.UpdatedAt = time.Now()

	decision := d.evaluate(incident, fm, pack, topic)
	d.record(ctx, sessionID, incident, fm, decision, missingBefore)
	return decision, nil
}

// evaluate applies the stop conditions in fixed order, then targets the
// next missing anchors.
func (d *Discretion) evaluate(incident *model.Incident, fm *model.FactModel, pack *model.FollowUpPack, topic model.Topic) *model.Decision {
	fs := &incident.FactState

	if d.config.StopWhenMandatoryComplete && model.MandatoryComplete(fm, *fs) {
		incident.Stop(model.IncidentStopComplete, model.StopReasonComplete)
		return d.stoppedDecision(incident)
	}

	if fs.ProbeCount >= d.config.MaxProbesFor(topic) {
		incident.Stop(model.IncidentStopBudget, model.StopReasonBudgetExhausted)
		return d.stoppedDecision(incident)
	}

	if fs.NonSubstantiveCount >= d.config.MaxNonSubstantiveResponses {
		incident.Stop(model.IncidentStopNonSubstantive, model.StopReasonNonSubstantive)
		return d.stoppedDecision(incident)
	}

	anchorState := ComputeAnchorState(pack, *fs)
	targets := anchorState.Missing
	if len(targets) == 0 {
		// Nothing left to ask about even though mandatory facts are open:
		// the pack's anchors do not cover them. Stop rather than loop, and
		// record that the anchors ran out instead of claiming completion.
		incident.Stop(model.IncidentStopComplete, model.StopReasonAnchorsExhausted)
		return d.stoppedDecision(incident)
	}

	limit := 1
	if d.config.AllowCombinedClarifiers && d.config.MaxCombinedClarifiersPerInstance > 1 {
		limit = d.config.MaxCombinedClarifiersPerInstance
	}
	if len(targets) > limit {
		targets = targets[:limit]
	}

	cctx := ClarifierContext{
		MultiInstance:  incident.InstanceNumber > 1,
		InstanceNumber: incident.InstanceNumber,
		Tone:           d.config.ToneFor(topic),
	}
	question, err := d.clarifier.BuildCombinedClarifier(targets, cctx)
	if err != nil {
		// Regenerate at micro scope before giving up; a guardrail-violating
		// question is never shown.
		question, err = d.clarifier.BuildMicroClarifier(targets[0], cctx)
		if err != nil {
			incident.Stop(model.IncidentStopError, model.StopReasonErrorFallback)
			return d.stoppedDecision(incident)
		}
		targets = targets[:1]
	}

	fs.ProbeCount++
	incident.UpdatedAt = time.Now()

	keys := make([]model.FactKey, len(targets))
	for i, a := range targets {
		keys[i] = a.Key
	}
	return &model.Decision{
		Action:        model.ActionProbe,
		State:         model.IncidentCollecting,
		Question:      question,
		TargetAnchors: keys,
		Tone:          cctx.Tone,
		Severity:      d.severityFor(incident, topic),
	}
}

// handleExtractionError applies the configured fallback policy. The choice
// is explicit configuration, never implicit.
func (d *Discretion) handleExtractionError(ctx context.Context, sessionID string, incident *model.Incident, fm *model.FactModel, cause error) (*model.Decision, error) {
	logging.WithIncident(sessionID, incident.ID).WithError(cause).Warn("fact extraction failed mid-probe")

	switch d.config.ExtractionFallback {
	case model.FallbackFlagAndSkip:
		incident.Stop(model.IncidentStopError, model.StopReasonErrorFlagged)
		incident.FlaggedForReview = true
	default:
		incident.Stop(model.IncidentStopError, model.StopReasonErrorFallback)
	}
	decision := d.stoppedDecision(incident)
	d.record(ctx, sessionID, incident, fm, decision, model.MissingFacts(fm, incident.FactState))
	return decision, nil
}

func (d *Discretion) stoppedDecision(incident *model.Incident) *model.Decision {
	topic := PackTopic(incident.PackID)
	return &model.Decision{
		Action:           model.ActionStop,
		State:            incident.State,
		StopReason:       incident.FactState.StopReason,
		Severity:         d.severityFor(incident, topic),
		FlaggedForReview: incident.FlaggedForReview,
	}
}

// severityFor resolves the incident's severity: a fact-driven value wins
// once severity facts are collected (and its tier is enabled), then the
// category default, then the topic profile.
func (d *Discretion) severityFor(incident *model.Incident, topic model.Topic) model.Severity {
	if sev := incident.FactState.Severity; sev != model.SeverityNone {
		if enabled, ok := d.config.SeverityTiersEnabled[sev]; !ok || enabled {
			return sev
		}
	}
	if def, ok := d.config.CategorySeverityDefaults[incident.CategoryID]; ok && def != model.SeverityNone {
		return def
	}
	if p, ok := d.config.TopicProfiles[topic]; ok && p.DefaultSeverity != model.SeverityNone {
		return p.DefaultSeverity
	}
	return model.SeverityStandard
}

// isNonSubstantive detects vague answers. Token matching and the minimum
// character floor combine with OR; either alone marks the turn vague. Token
// matching compares the whole trimmed answer, so a long answer that merely
// contains a vague phrase still counts as substantive.
func (d *Discretion) isNonSubstantive(answer string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(answer))
	if trimmed == "" {
		return true
	}
	if d.config.MinSubstantiveLength > 0 && len(trimmed) < d.config.MinSubstantiveLength {
		return true
	}
	normalized := strings.Trim(trimmed, " .!?,")
	for _, token := range d.config.VagueTokens {
		if normalized == token {
			return true
		}
	}
	return false
}

// record persists a decision trace at the configured verbosity and pushes
// it to any live admin monitors.
func (d *Discretion) record(ctx context.Context, sessionID string, incident *model.Incident, fm *model.FactModel, decision *model.Decision, missingBefore []model.FactKey) {
	verbosity := model.NormalizeVerbosity(string(d.config.TraceVerbosity))
	if verbosity == model.VerbosityNone {
		return
	}
	if verbosity == model.VerbosityMinimal && decision.Action != model.ActionStop {
		return
	}

	trace := &model.DecisionTrace{
		TraceID:             uuid.New().String(),
		SessionID:           sessionID,
		IncidentID:          incident.ID,
		Action:              decision.Action,
		State:               decision.State,
		StopReason:          decision.StopReason,
		ProbeCount:          incident.FactState.ProbeCount,
		NonSubstantiveCount: incident.FactState.NonSubstantiveCount,
		MissingBefore:       missingBefore,
		MissingAfter:        model.MissingFacts(fm, incident.FactState),
		NextQuestion:        decision.Question,
		CreatedAt:           time.Now(),
	}

	if d.traces != nil {
		if err := d.traces.Insert(ctx, trace); err != nil {
			logrus.WithError(err).Warn("failed to persist decision trace")
		}
	}
	if d.broadcaster != nil {
		d.broadcaster.BroadcastToAdmins(sessionID, "decision_trace", trace)
	}
}
