package service

import (
	"context"
	"testing"

	"clearquest/internal/model"
)

type fakePackRepo struct {
	packs map[string]*model.FollowUpPack
}

func (f *fakePackRepo) Upsert(_ context.Context, pack *model.FollowUpPack) error {
	f.packs[pack.PackID] = pack
	return nil
}

func (f *fakePackRepo) GetByPackID(_ context.Context, packID string) (*model.FollowUpPack, error) {
	return f.packs[packID], nil
}

func (f *fakePackRepo) List(_ context.Context) ([]*model.FollowUpPack, error) {
	out := make([]*model.FollowUpPack, 0, len(f.packs))
	for _, p := range f.packs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePackRepo) Delete(_ context.Context, packID string) error {
	delete(f.packs, packID)
	return nil
}

type fakeConfigRepo struct {
	cfg *model.DiscretionConfig
}

func (f *fakeConfigRepo) GetDiscretionConfig(_ context.Context) (*model.DiscretionConfig, error) {
	return f.cfg, nil
}

func (f *fakeConfigRepo) PutDiscretionConfig(_ context.Context, cfg *model.DiscretionConfig) error {
	f.cfg = cfg
	return nil
}

type fakeFactModelRepo struct {
	byCategory map[string]*model.FactModel
}

func (f *fakeFactModelRepo) Create(_ context.Context, fm *model.FactModel) (string, error) {
	f.byCategory[fm.CategoryID] = fm
	return fm.CategoryID, nil
}

func (f *fakeFactModelRepo) GetByID(_ context.Context, id string) (*model.FactModel, error) {
	return f.byCategory[id], nil
}

func (f *fakeFactModelRepo) GetByCategory(_ context.Context, categoryID string) (*model.FactModel, error) {
	return f.byCategory[categoryID], nil
}

func (f *fakeFactModelRepo) List(_ context.Context) ([]*model.FactModel, error) {
	out := make([]*model.FactModel, 0, len(f.byCategory))
	for _, fm := range f.byCategory {
		out = append(out, fm)
	}
	return out, nil
}

func (f *fakeFactModelRepo) Update(_ context.Context, fm *model.FactModel) error {
	f.byCategory[fm.CategoryID] = fm
	return nil
}

func (f *fakeFactModelRepo) Delete(_ context.Context, id string) error {
	delete(f.byCategory, id)
	return nil
}

type sessionFixture struct {
	svc     *Sessions
	repo    *memSessionRepo
	configs *fakeConfigRepo
	models  *fakeFactModelRepo
}

func newSessionFixture() *sessionFixture {
	repo := newMemSessionRepo()
	packs := &fakePackRepo{packs: map[string]*model.FollowUpPack{}}
	packs.packs["PACK_DRIVING_DUIDWI_STANDARD"] = duiPack()
	packs.packs["PACK_RESIDENCE_HISTORY_STANDARD"] = &model.FollowUpPack{
		PackID: "PACK_RESIDENCE_HISTORY_STANDARD",
		Title:  "Residence History",
		Questions: []model.PackQuestion{
			{Code: "Q1", Prompt: "What was your address at that time?"},
			{Code: "Q2", Prompt: "When did you live there?"},
		},
	}
	configs := &fakeConfigRepo{cfg: model.DefaultDiscretionConfig()}
	models := &fakeFactModelRepo{byCategory: map[string]*model.FactModel{"DUI": duiFactModel()}}
	transcript := NewTranscript(repo, nil)
	svc := NewSessions(repo, nil, packs, configs, nil,
		NewRegistry(models), transcript, &fakeTraceRepo{}, nil)
	return &sessionFixture{svc: svc, repo: repo, configs: configs, models: models}
}

func lastEntry(t *testing.T, session *model.InterviewSession) model.TranscriptEntry {
	t.Helper()
	if len(session.Transcript) == 0 {
		t.Fatal("transcript is empty")
	}
	return session.Transcript[len(session.Transcript)-1]
}

func TestCreateSessionSeedsWelcome(t *testing.T) {
	fx := newSessionFixture()

	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != model.SessionActive {
		t.Errorf("status = %s, want active", session.Status)
	}
	if len(session.Transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(session.Transcript))
	}
	welcome := session.Transcript[0]
	if welcome.MessageType != model.MessageWelcome {
		t.Errorf("message type = %s, want WELCOME", welcome.MessageType)
	}
	if !welcome.VisibleToCandidate {
		t.Error("welcome message must be candidate-visible")
	}
}

func TestRecordDisclosureOpensIncident(t *testing.T) {
	fx := newSessionFixture()
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-12", "Q12", "PACK_DRIVING_DUIDWI_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Incident == nil {
		t.Fatal("mapped pack must open an incident")
	}
	if len(res.LegacyQuestions) != 0 {
		t.Error("incident path must not return legacy questions")
	}
	if res.Incident.InstanceNumber != 1 {
		t.Errorf("instance = %d, want 1", res.Incident.InstanceNumber)
	}
	if res.Incident.State != model.IncidentCollecting {
		t.Errorf("state = %s, want COLLECTING", res.Incident.State)
	}

	stored, _ := fx.repo.GetByID(context.Background(), session.ID)
	if len(stored.Incidents) != 1 {
		t.Fatalf("persisted incidents = %d, want 1", len(stored.Incidents))
	}
	opened := lastEntry(t, stored)
	if opened.MessageType != model.MessageIncidentOpened {
		t.Errorf("last entry = %s, want INCIDENT_OPENED", opened.MessageType)
	}
	if opened.VisibleToCandidate {
		t.Error("audit event must not be candidate-visible")
	}

	// A second disclosure of the same category is a new instance.
	res2, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-12", "Q12", "PACK_DRIVING_DUIDWI_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.Incident.InstanceNumber != 2 {
		t.Errorf("second instance = %d, want 2", res2.Incident.InstanceNumber)
	}
}

func TestRecordDisclosureLegacyFallback(t *testing.T) {
	fx := newSessionFixture()
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-40", "Q40", "PACK_RESIDENCE_HISTORY_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Incident != nil {
		t.Fatal("unmapped pack must not open an incident")
	}
	if len(res.LegacyQuestions) != 2 {
		t.Fatalf("legacy questions = %d, want 2", len(res.LegacyQuestions))
	}
	if res.FirstQuestion != "What was your address at that time?" {
		t.Errorf("first question = %q", res.FirstQuestion)
	}

	stored, _ := fx.repo.GetByID(context.Background(), session.ID)
	if len(stored.Incidents) != 0 {
		t.Errorf("legacy flow must not persist incidents, got %d", len(stored.Incidents))
	}
	event := lastEntry(t, stored)
	if event.MessageType != model.MessageSystemEvent {
		t.Errorf("last entry = %s, want SYSTEM_EVENT", event.MessageType)
	}
	if event.Meta["event"] != "legacy_pack_flow" {
		t.Errorf("event meta = %v", event.Meta["event"])
	}
}

func TestRecordDisclosureDeterministicMode(t *testing.T) {
	fx := newSessionFixture()
	fx.configs.cfg.InterviewMode = model.ModeDeterministic
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-12", "Q12", "PACK_DRIVING_DUIDWI_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Incident != nil {
		t.Error("deterministic mode must not open incidents even for mapped packs")
	}
}

func TestSubmitAnswerAppendsClarifierOnProbe(t *testing.T) {
	fx := newSessionFixture()
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-12", "Q12", "PACK_DRIVING_DUIDWI_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := fx.svc.SubmitAnswer(context.Background(), session.ID, res.Incident.ID, "hard to say exactly what happened")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Decision.Action != model.ActionProbe {
		t.Fatalf("action = %s, want probe", ans.Decision.Action)
	}
	if !ans.Persisted {
		t.Error("clarifier append must report persisted")
	}

	stored, _ := fx.repo.GetByID(context.Background(), session.ID)
	clarifier := lastEntry(t, stored)
	if clarifier.MessageType != model.MessageClarifier {
		t.Fatalf("last entry = %s, want CLARIFIER", clarifier.MessageType)
	}
	if !clarifier.VisibleToCandidate {
		t.Error("clarifier must be candidate-visible")
	}
	if clarifier.Text != ans.Decision.Question {
		t.Errorf("clarifier text = %q, want %q", clarifier.Text, ans.Decision.Question)
	}
	// The candidate's answer precedes the clarifier.
	answer := stored.Transcript[len(stored.Transcript)-2]
	if answer.Role != model.RoleUser {
		t.Errorf("preceding entry role = %s, want user", answer.Role)
	}
}

func TestSubmitAnswerLogsIncidentClosedOnStop(t *testing.T) {
	fx := newSessionFixture()
	// A model the keyword extractor can fully satisfy in one answer.
	fx.models.byCategory["DUI"] = &model.FactModel{
		CategoryID:     "DUI",
		MandatoryFacts: []model.FactKey{"date", "location"},
	}
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := fx.svc.RecordDisclosure(context.Background(), session.ID, "q-12", "Q12", "PACK_DRIVING_DUIDWI_STANDARD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := fx.svc.SubmitAnswer(context.Background(), session.ID, res.Incident.ID, "The stop was on 2019-03-04 in Phoenix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Decision.Action != model.ActionStop {
		t.Fatalf("action = %s, want stop", ans.Decision.Action)
	}
	if ans.Decision.StopReason != model.StopReasonComplete {
		t.Errorf("stop reason = %q", ans.Decision.StopReason)
	}

	stored, _ := fx.repo.GetByID(context.Background(), session.ID)
	if got := stored.Incidents[0].State; got != model.IncidentStopComplete {
		t.Errorf("persisted state = %s, want STOP_COMPLETE", got)
	}
	closed := lastEntry(t, stored)
	if closed.MessageType != model.MessageIncidentClosed {
		t.Fatalf("last entry = %s, want INCIDENT_CLOSED", closed.MessageType)
	}
	if closed.VisibleToCandidate {
		t.Error("close event must not be candidate-visible")
	}
	if closed.Meta["incidentId"] != res.Incident.ID {
		t.Errorf("close meta incidentId = %v", closed.Meta["incidentId"])
	}
}

func TestResumeSessionMarksTranscript(t *testing.T) {
	fx := newSessionFixture()
	session, err := fx.svc.CreateSession(context.Background(), "cand_1", "dept_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fx.repo.UpdateStatus(context.Background(), session.ID, model.SessionAbandoned, nil)

	resumed, err := fx.svc.ResumeSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.Status != model.SessionActive {
		t.Errorf("status = %s, want active", resumed.Status)
	}
	marker := lastEntry(t, resumed)
	if marker.MessageType != model.MessageResume {
		t.Errorf("last entry = %s, want RESUME", marker.MessageType)
	}
}
