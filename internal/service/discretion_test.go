package service

import (
	"context"
	"errors"
	"testing"

	"clearquest/internal/model"
)

type fakeTraceRepo struct {
	inserted []*model.DecisionTrace
}

func (f *fakeTraceRepo) Insert(_ context.Context, trace *model.DecisionTrace) error {
	f.inserted = append(f.inserted, trace)
	return nil
}

func (f *fakeTraceRepo) ListBySession(_ context.Context, sessionID string) ([]*model.DecisionTrace, error) {
	return f.inserted, nil
}

func (f *fakeTraceRepo) ListByIncident(_ context.Context, incidentID string) ([]*model.DecisionTrace, error) {
	return f.inserted, nil
}

type fakeExtractor struct {
	facts map[model.FactKey]string
	err   error
}

func (f *fakeExtractor) ExtractFacts(_ context.Context, fm *model.FactModel, fs model.FactState, _ string) (model.FactState, error) {
	if f.err != nil {
		return fs, f.err
	}
	return applyExtracted(fm, fs, f.facts, nil, ""), nil
}

func duiFactModel() *model.FactModel {
	return &model.FactModel{
		CategoryID:     "DUI",
		MandatoryFacts: []model.FactKey{"date", "location", "outcome"},
		SeverityFacts:  []model.FactKey{"outcome"},
	}
}

func duiPack() *model.FollowUpPack {
	return &model.FollowUpPack{
		PackID:     "PACK_DRIVING_DUIDWI_STANDARD",
		CategoryID: "DUI",
		FactAnchors: []model.FactAnchor{
			{Key: "date", Priority: 1},
			{Key: "location", Priority: 2},
			{Key: "outcome", Priority: 3},
		},
	}
}

func newTestIncident(fm *model.FactModel) *model.Incident {
	inc := model.NewIncident("DUI", "Q12", "q-12", 1, fm)
	inc.PackID = "PACK_DRIVING_DUIDWI_STANDARD"
	return inc
}

func TestDecideProbesForMissingAnchors(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	traces := &fakeTraceRepo{}
	d := NewDiscretion(cfg, traces, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	ext := &fakeExtractor{facts: map[model.FactKey]string{"date": "March 2019"}}

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "It was back in March 2019", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Action != model.ActionProbe {
		t.Fatalf("action = %s, want probe", decision.Action)
	}
	if decision.Question == "" {
		t.Error("probe decision must carry a question")
	}
	if inc.FactState.ProbeCount != 1 {
		t.Errorf("probe count = %d, want 1", inc.FactState.ProbeCount)
	}
	// date was extracted, so the remaining anchors are targeted
	for _, k := range decision.TargetAnchors {
		if k == "date" {
			t.Error("collected anchor must not be re-targeted")
		}
	}
	if inc.State != model.IncidentCollecting {
		t.Errorf("state = %s, want COLLECTING", inc.State)
	}
}

func TestDecideStopsWhenMandatoryComplete(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	ext := &fakeExtractor{facts: map[model.FactKey]string{
		"date":     "March 2019",
		"location": "Phoenix",
		"outcome":  "charges dismissed",
	}}

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "full detail answer", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Action != model.ActionStop {
		t.Fatalf("action = %s, want stop", decision.Action)
	}
	if inc.State != model.IncidentStopComplete {
		t.Errorf("state = %s, want STOP_COMPLETE", inc.State)
	}
	if decision.StopReason != model.StopReasonComplete {
		t.Errorf("stop reason = %q", decision.StopReason)
	}
	if decision.Severity != model.SeverityLaxed {
		t.Errorf("severity = %q, want LAXED from dismissed outcome", decision.Severity)
	}
}

func TestDecideStopsWhenAnchorsExhausted(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	// The pack anchors only the date, so once it is collected there is
	// nothing left to target while location and outcome stay open.
	pack := &model.FollowUpPack{
		PackID:      "PACK_DRIVING_DUIDWI_STANDARD",
		CategoryID:  "DUI",
		FactAnchors: []model.FactAnchor{{Key: "date", Priority: 1}},
	}
	ext := &fakeExtractor{facts: map[model.FactKey]string{"date": "March 2019"}}

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, pack, "It was back in March 2019", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Action != model.ActionStop {
		t.Fatalf("action = %s, want stop", decision.Action)
	}
	if decision.StopReason != model.StopReasonAnchorsExhausted {
		t.Errorf("stop reason = %q, want %q", decision.StopReason, model.StopReasonAnchorsExhausted)
	}
	if inc.FactState.CompletionStatus == model.CompletionComplete {
		t.Error("open mandatory facts must not be reported complete")
	}
}

func TestDecideStopsOnProbeBudget(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	inc.FactState.ProbeCount = cfg.MaxProbesPerIncident
	ext := &fakeExtractor{}

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "still vague but long enough answer", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inc.State != model.IncidentStopBudget {
		t.Errorf("state = %s, want STOP_BUDGET_EXHAUSTED", inc.State)
	}
	if decision.StopReason != model.StopReasonBudgetExhausted {
		t.Errorf("stop reason = %q", decision.StopReason)
	}
}

func TestDecideCompletionOutranksBudget(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	inc.FactState.ProbeCount = cfg.MaxProbesPerIncident
	ext := &fakeExtractor{facts: map[model.FactKey]string{
		"date":     "March 2019",
		"location": "Phoenix",
		"outcome":  "dismissed",
	}}

	_, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "everything at once", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inc.State != model.IncidentStopComplete {
		t.Errorf("state = %s, completion must win over budget", inc.State)
	}
}

func TestDecideNonSubstantiveThreshold(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	ext := &fakeExtractor{}

	// First vague answer: counter goes to 1, engine keeps probing
	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "i don't recall", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != model.ActionProbe {
		t.Fatalf("first vague answer should still probe, got %s", decision.Action)
	}
	if inc.FactState.NonSubstantiveCount != 1 {
		t.Errorf("non-substantive count = %d, want 1", inc.FactState.NonSubstantiveCount)
	}

	// Second vague answer crosses the default threshold of 2
	decision, err = d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "not sure", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != model.ActionStop {
		t.Fatalf("second vague answer should stop, got %s", decision.Action)
	}
	if inc.State != model.IncidentStopNonSubstantive {
		t.Errorf("state = %s, want STOP_NONSUBSTANTIVE_EXCEEDED", inc.State)
	}
	if inc.FactState.CompletionStatus != model.CompletionBlocked {
		t.Errorf("completion = %s, want blocked", inc.FactState.CompletionStatus)
	}
}

func TestDecideExtractionErrorFallback(t *testing.T) {
	t.Run("deterministic fallback", func(t *testing.T) {
		cfg := model.DefaultDiscretionConfig()
		cfg.ExtractionFallback = model.FallbackDeterministic
		d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

		fm := duiFactModel()
		inc := newTestIncident(fm)
		ext := &fakeExtractor{err: errors.New("model timeout")}

		decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "a substantive answer here", ext)
		if err != nil {
			t.Fatalf("fallback policy must absorb the error, got %v", err)
		}
		if inc.State != model.IncidentStopError {
			t.Errorf("state = %s, want STOP_ERROR_FALLBACK", inc.State)
		}
		if decision.StopReason != model.StopReasonErrorFallback {
			t.Errorf("stop reason = %q", decision.StopReason)
		}
		if decision.FlaggedForReview {
			t.Error("deterministic fallback must not flag")
		}
	})

	t.Run("flag and skip", func(t *testing.T) {
		cfg := model.DefaultDiscretionConfig()
		cfg.ExtractionFallback = model.FallbackFlagAndSkip
		d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

		fm := duiFactModel()
		inc := newTestIncident(fm)
		ext := &fakeExtractor{err: errors.New("model timeout")}

		decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "a substantive answer here", ext)
		if err != nil {
			t.Fatalf("fallback policy must absorb the error, got %v", err)
		}
		if decision.StopReason != model.StopReasonErrorFlagged {
			t.Errorf("stop reason = %q", decision.StopReason)
		}
		if !decision.FlaggedForReview {
			t.Error("flag-and-skip must mark the incident for review")
		}
	})
}

func TestDecideTerminalIncidentIsIdempotent(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	inc.Stop(model.IncidentStopComplete, model.StopReasonComplete)

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "more text", &fakeExtractor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != model.ActionStop {
		t.Errorf("terminal incident must keep reporting stop, got %s", decision.Action)
	}
	if decision.StopReason != model.StopReasonComplete {
		t.Errorf("stop reason = %q", decision.StopReason)
	}
}

func TestDecideCombinedClarifierCap(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	cfg.AllowCombinedClarifiers = true
	cfg.MaxCombinedClarifiersPerInstance = 2
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "something long but factless", &fakeExtractor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decision.TargetAnchors) != 2 {
		t.Errorf("targets = %v, want 2 anchors", decision.TargetAnchors)
	}
	if decision.TargetAnchors[0] != "date" || decision.TargetAnchors[1] != "location" {
		t.Errorf("targets must follow anchor priority, got %v", decision.TargetAnchors)
	}
}

func TestDecideSingleClarifierWhenCombinedDisabled(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	cfg.AllowCombinedClarifiers = false
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "something long but factless", &fakeExtractor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decision.TargetAnchors) != 1 {
		t.Errorf("targets = %v, want a single anchor", decision.TargetAnchors)
	}
}

func TestDecideTraceVerbosity(t *testing.T) {
	run := func(verbosity model.TraceVerbosity) *fakeTraceRepo {
		cfg := model.DefaultDiscretionConfig()
		cfg.TraceVerbosity = verbosity
		traces := &fakeTraceRepo{}
		d := NewDiscretion(cfg, traces, nil)

		fm := duiFactModel()
		inc := newTestIncident(fm)
		ext := &fakeExtractor{}

		// one probe turn, then a non-substantive stop
		d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "i don't recall", ext)
		d.Decide(context.Background(), "sess_1", inc, fm, duiPack(), "not sure", ext)
		return traces
	}

	if got := len(run(model.VerbosityStandard).inserted); got != 2 {
		t.Errorf("STANDARD should trace every turn, got %d", got)
	}
	if got := len(run(model.VerbosityMinimal).inserted); got != 1 {
		t.Errorf("MINIMAL should trace only the stop, got %d", got)
	}
	if got := len(run(model.VerbosityNone).inserted); got != 0 {
		t.Errorf("NONE should trace nothing, got %d", got)
	}
}

func TestIsNonSubstantive(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	d := NewDiscretion(cfg, nil, nil)

	tests := []struct {
		answer string
		vague  bool
	}{
		{"", true},
		{"   ", true},
		{"idk", true},
		{"not sure", true},
		{"I don't recall", true},
		{"no idea", true},
		{"Not sure.", true},
		{"It happened in March 2019 in Phoenix", false},
		{"Mesa Police Department arrested me", false},
		{"Not sure of the day but it was March 2019 in Mesa", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			if got := d.isNonSubstantive(tt.answer); got != tt.vague {
				t.Errorf("isNonSubstantive(%q) = %v, want %v", tt.answer, got, tt.vague)
			}
		})
	}
}

// A raised character floor must not flag answers that carry facts just
// because a vague phrase appears somewhere inside them.
func TestDecideExtractsFromHedgedAnswer(t *testing.T) {
	cfg := model.DefaultDiscretionConfig()
	cfg.MinSubstantiveLength = 15
	d := NewDiscretion(cfg, &fakeTraceRepo{}, nil)

	fm := duiFactModel()
	inc := newTestIncident(fm)
	ext := NewKeywordExtractor(cfg, "DUI")

	decision, err := d.Decide(context.Background(), "sess_1", inc, fm, duiPack(),
		"Not sure of the day but it was March 2019 in Mesa", ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inc.FactState.NonSubstantiveCount != 0 {
		t.Errorf("non-substantive count = %d, want 0", inc.FactState.NonSubstantiveCount)
	}
	if got := inc.FactState.Facts["date"]; got != "March 2019" {
		t.Errorf("facts[date] = %q, want %q", got, "March 2019")
	}
	if decision.Action != model.ActionProbe {
		t.Errorf("action = %s, want probe", decision.Action)
	}

	// The floor still applies on its own terms.
	if !d.isNonSubstantive("maybe 2019") {
		t.Error("answer below the character floor must be non-substantive")
	}
}
