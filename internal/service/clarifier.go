package service

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode"

	"clearquest/internal/model"
)

// ErrGuardrailViolation is returned when a generated clarifier breaks the
// configured style guardrails. The question must be rejected, never shown.
var ErrGuardrailViolation = errors.New("clarifier violates style guardrails")

// ClarifierContext carries per-turn framing inputs for question generation.
type ClarifierContext struct {
	MultiInstance  bool
	InstanceNumber int
	Tone           model.Tone
}

// Clarifier computes anchor completeness and generates direct, factual
// clarifying questions for missing anchors.
type Clarifier struct {
	guardrails model.ClarifierGuardrails
}

// NewClarifier creates a clarifier engine bound to the active guardrails.
func NewClarifier(guardrails model.ClarifierGuardrails) *Clarifier {
	return &Clarifier{guardrails: guardrails}
}

// ComputeAnchorState splits the pack's anchors into collected and missing,
// both in ascending priority order. An anchor counts as collected when the
// incident's fact state holds a non-empty value for its key.
func ComputeAnchorState(pack *model.FollowUpPack, fs model.FactState) model.AnchorState {
	state := model.AnchorState{
		Collected: []model.FactAnchor{},
		Missing:   []model.FactAnchor{},
	}
	if pack == nil {
		return state
	}
	anchors := make([]model.FactAnchor, len(pack.FactAnchors))
	copy(anchors, pack.FactAnchors)
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Priority < anchors[j].Priority
	})
	for _, a := range anchors {
		if fs.Facts != nil && strings.TrimSpace(fs.Facts[a.Key]) != "" {
			state.Collected = append(state.Collected, a)
		} else {
			state.Missing = append(state.Missing, a)
		}
	}
	return state
}

// anchorFragments hold the question fragment per known anchor key. The
// fragment reads as a complete question once capitalized and terminated.
var anchorFragments = map[model.FactKey]string{
	"agency_name":  "which agency or department was involved",
	"month_year":   "in what month and year did this happen",
	"date":         "on what date did this happen",
	"location":     "where did this happen",
	"outcome":      "what was the outcome",
	"disposition":  "what was the final disposition",
	"charge":       "what was the charge",
	"substance":    "what substance was involved",
	"frequency":    "how often did this occur",
	"last_use":     "when was the most recent occurrence",
	"employer":     "which employer was this with",
	"position":     "what position did you hold",
	"reason":       "what was the stated reason",
	"bac_level":    "what was the recorded blood alcohol level",
	"court":        "which court handled the matter",
	"case_number":  "what was the case number",
	"injuries":     "were there any injuries",
	"relationship": "what was your relationship to the other person involved",
}

// multiInstancePrefixes frame a clarifier when the candidate has disclosed
// more than one instance of the same incident type.
var multiInstancePrefixes = []string{
	"For this incident, ",
	"Regarding this specific occurrence, ",
	"For this particular event, ",
}

// fragmentFor returns the template fragment for an anchor, falling back to
// a generic phrasing for unknown keys.
func fragmentFor(key model.FactKey) string {
	if f, ok := anchorFragments[key]; ok {
		return f
	}
	readable := strings.ReplaceAll(string(key), "_", " ")
	return fmt.Sprintf("what was the %s", readable)
}

// BuildMicroClarifier generates a single-anchor clarifying question.
func (c *Clarifier) BuildMicroClarifier(anchor model.FactAnchor, cctx ClarifierContext) (string, error) {
	question := capitalizeFirst(fragmentFor(anchor.Key)) + "?"
	if cctx.MultiInstance && anchor.MultiInstanceAware {
		question = applyMultiInstancePrefix(question)
	}
	if err := c.validate(question); err != nil {
		return "", err
	}
	return question, nil
}

// BuildCombinedClarifier joins several anchors into one question. Two
// anchors join with "and"; three or more use an Oxford-comma list. The
// multi-instance prefix applies when any anchor in the set is
// multi-instance aware.
func (c *Clarifier) BuildCombinedClarifier(anchors []model.FactAnchor, cctx ClarifierContext) (string, error) {
	if len(anchors) == 0 {
		return "", errors.New("no anchors to clarify")
	}
	if len(anchors) == 1 {
		return c.BuildMicroClarifier(anchors[0], cctx)
	}

	fragments := make([]string, len(anchors))
	multiAware := false
	for i, a := range anchors {
		fragments[i] = fragmentFor(a.Key)
		if a.MultiInstanceAware {
			multiAware = true
		}
	}

	var joined string
	if len(fragments) == 2 {
		joined = fragments[0] + " and " + fragments[1]
	} else {
		joined = strings.Join(fragments[:len(fragments)-1], ", ") + ", and " + fragments[len(fragments)-1]
	}

	question := capitalizeFirst(joined) + "?"
	if cctx.MultiInstance && multiAware {
		question = applyMultiInstancePrefix(question)
	}
	if err := c.validate(question); err != nil {
		return "", err
	}
	return question, nil
}

// forbiddenNarrative and forbiddenEmotional are phrasing categories the
// guardrails can reject. Clarifiers must stay direct and factual.
var forbiddenNarrative = []string{
	"walk me through", "tell me the story", "describe in detail",
	"take me back", "paint a picture",
}

var forbiddenEmotional = []string{
	"how did you feel", "how did that make you feel", "that must have been",
	"i'm sorry", "i am sorry", "i understand this is hard",
}

// validate checks generated text against the active guardrails.
func (c *Clarifier) validate(question string) error {
	lower := strings.ToLower(question)
	if c.guardrails.ForbidNarrative {
		for _, p := range forbiddenNarrative {
			if strings.Contains(lower, p) {
				return fmt.Errorf("%w: narrative phrasing %q", ErrGuardrailViolation, p)
			}
		}
	}
	if c.guardrails.ForbidEmotional {
		for _, p := range forbiddenEmotional {
			if strings.Contains(lower, p) {
				return fmt.Errorf("%w: emotional phrasing %q", ErrGuardrailViolation, p)
			}
		}
	}
	if c.guardrails.MaxWords > 0 {
		if n := len(strings.Fields(question)); n > c.guardrails.MaxWords {
			return fmt.Errorf("%w: %d words exceeds cap of %d", ErrGuardrailViolation, n, c.guardrails.MaxWords)
		}
	}
	return nil
}

// applyMultiInstancePrefix prepends a randomly chosen framing phrase and
// lower-cases the question's first letter to keep the sentence grammatical.
func applyMultiInstancePrefix(question string) string {
	prefix := multiInstancePrefixes[rand.Intn(len(multiInstancePrefixes))]
	return prefix + lowerFirst(question)
}

// packTopicKeywords map pack identifiers to broad topics, checked in order.
var packTopicKeywords = []struct {
	keywords []string
	topic    model.Topic
}{
	{[]string{"LE_APP", "PRIOR", "APPLICATION"}, model.TopicPriorApps},
	{[]string{"DOMESTIC", "VIOLENCE", "ASSAULT"}, model.TopicViolenceDV},
	{[]string{"DUI", "DWI", "DRUG", "ALCOHOL"}, model.TopicDUIDrugs},
	{[]string{"DRIVING", "LICENSE", "TRAFFIC"}, model.TopicDriving},
}

// PackTopic returns the broad topic for a pack identifier, used to select
// tone and severity defaults. Unknown packs are general.
func PackTopic(packID string) model.Topic {
	upper := strings.ToUpper(packID)
	for _, rule := range packTopicKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(upper, kw) {
				return rule.topic
			}
		}
	}
	return model.TopicGeneral
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
