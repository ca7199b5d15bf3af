package model

import "strings"

// TraceVerbosity controls how much of the discretion engine's reasoning is
// persisted as DecisionTrace entries. Older configs used two overlapping
// enumerations (MINIMAL/STANDARD and NONE/BASIC/TRACE); NormalizeVerbosity
// folds both into this one.
type TraceVerbosity string

const (
	VerbosityNone     TraceVerbosity = "NONE"
	VerbosityMinimal  TraceVerbosity = "MINIMAL"
	VerbosityStandard TraceVerbosity = "STANDARD"
)

// NormalizeVerbosity maps legacy logging-level names onto the unified enum.
func NormalizeVerbosity(s string) TraceVerbosity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "OFF":
		return VerbosityNone
	case "MINIMAL", "BASIC":
		return VerbosityMinimal
	case "STANDARD", "TRACE", "FULL":
		return VerbosityStandard
	default:
		return VerbosityMinimal
	}
}

// FallbackPolicy picks what happens when fact extraction fails mid-probe.
// The choice is always explicit in configuration, never implied.
type FallbackPolicy string

const (
	FallbackDeterministic FallbackPolicy = "DETERMINISTIC_FALLBACK"
	FallbackFlagAndSkip   FallbackPolicy = "FLAG_AND_SKIP"
)

// InterviewMode gates how follow-ups are driven globally.
type InterviewMode string

const (
	ModeDeterministic InterviewMode = "DETERMINISTIC"
	ModeAIProbing     InterviewMode = "AI_PROBING"
	ModeHybrid        InterviewMode = "HYBRID"
)

// Tone is the phrasing register for generated clarifiers.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneFormal     Tone = "formal"
	ToneSupportive Tone = "supportive"
)

// TopicProfile holds per-topic defaults applied before any global override.
type TopicProfile struct {
	DefaultTone      Tone     `json:"defaultTone" bson:"defaultTone"`
	DefaultSeverity  Severity `json:"defaultSeverity" bson:"defaultSeverity"`
	DefaultMaxProbes int      `json:"defaultMaxProbes,omitempty" bson:"defaultMaxProbes,omitempty"`
}

// ClarifierGuardrails constrain generated clarifier text. A question that
// violates a guardrail is rejected before emission, never silently shown.
type ClarifierGuardrails struct {
	MaxWords        int  `json:"maxWords" bson:"maxWords"`
	ForbidNarrative bool `json:"forbidNarrative" bson:"forbidNarrative"`
	ForbidEmotional bool `json:"forbidEmotional" bson:"forbidEmotional"`
}

// DiscretionConfig is the admin-editable policy governing probing. It is
// loaded once per request and injected into the engines rather than read
// ad hoc from the store.
type DiscretionConfig struct {
	MaxProbesPerIncident             int                    `json:"maxProbesPerIncident" bson:"maxProbesPerIncident"`
	MaxFollowUps                     int                    `json:"maxFollowUps" bson:"maxFollowUps"`
	MaxNonSubstantiveResponses       int                    `json:"maxNonSubstantiveResponses" bson:"maxNonSubstantiveResponses"`
	MaxCombinedClarifiersPerInstance int                    `json:"maxCombinedClarifiersPerInstance" bson:"maxCombinedClarifiersPerInstance"`
	AllowCombinedClarifiers          bool                   `json:"allowCombinedClarifiers" bson:"allowCombinedClarifiers"`
	StopWhenMandatoryComplete        bool                   `json:"stopWhenMandatoryFactsComplete" bson:"stopWhenMandatoryFactsComplete"`
	VagueTokens                      []string               `json:"vagueTokens" bson:"vagueTokens"`
	MinSubstantiveLength             int                    `json:"minSubstantiveLength" bson:"minSubstantiveLength"`
	CategorySeverityDefaults         map[string]Severity    `json:"categorySeverityDefaults" bson:"categorySeverityDefaults"`
	TopicProfiles                    map[Topic]TopicProfile `json:"topicProfiles" bson:"topicProfiles"`
	ToneControl                      Tone                   `json:"toneControl,omitempty" bson:"toneControl,omitempty"`
	Guardrails                       ClarifierGuardrails    `json:"clarifierGuardrails" bson:"clarifierGuardrails"`
	ExtractionFallback               FallbackPolicy         `json:"extractionFallback" bson:"extractionFallback"`
	TraceVerbosity                   TraceVerbosity         `json:"traceVerbosity" bson:"traceVerbosity"`
	InterviewMode                    InterviewMode          `json:"interviewMode" bson:"interviewMode"`
	SandboxOnly                      bool                   `json:"sandboxOnly" bson:"sandboxOnly"`
	EnabledCategories                []string               `json:"enabledCategories" bson:"enabledCategories"`
	SeverityTiersEnabled             map[Severity]bool      `json:"severityTiersEnabled" bson:"severityTiersEnabled"`
}

// DefaultDiscretionConfig returns the policy used until an administrator
// saves one.
func DefaultDiscretionConfig() *DiscretionConfig {
	return &DiscretionConfig{
		MaxProbesPerIncident:             4,
		MaxFollowUps:                     8,
		MaxNonSubstantiveResponses:       2,
		MaxCombinedClarifiersPerInstance: 3,
		AllowCombinedClarifiers:          true,
		StopWhenMandatoryComplete:        true,
		VagueTokens: []string{
			"i don't recall", "i dont recall", "not sure", "i don't know",
			"i dont know", "idk", "can't remember", "cant remember", "no idea",
		},
		MinSubstantiveLength: 3,
		CategorySeverityDefaults: map[string]Severity{
			"DUI":                    SeverityStandard,
			"DOMESTIC_VIOLENCE":      SeverityStrict,
			"DRUG_USE":               SeverityStandard,
			"THEFT":                  SeverityStandard,
			"FINANCIAL":              SeverityLaxed,
			"EMPLOYMENT_TERMINATION": SeverityLaxed,
			"DRIVING":                SeverityLaxed,
			"CRIMINAL_HISTORY":       SeverityStrict,
			"PRIOR_APPLICATIONS":     SeverityLaxed,
			"INTEGRITY":              SeverityStandard,
		},
		TopicProfiles: map[Topic]TopicProfile{
			TopicPriorApps:  {DefaultTone: ToneNeutral, DefaultSeverity: SeverityLaxed},
			TopicViolenceDV: {DefaultTone: ToneFormal, DefaultSeverity: SeverityStrict, DefaultMaxProbes: 5},
			TopicDUIDrugs:   {DefaultTone: ToneFormal, DefaultSeverity: SeverityStandard},
			TopicDriving:    {DefaultTone: ToneNeutral, DefaultSeverity: SeverityLaxed},
			TopicGeneral:    {DefaultTone: ToneNeutral, DefaultSeverity: SeverityStandard},
		},
		Guardrails: ClarifierGuardrails{
			MaxWords:        24,
			ForbidNarrative: true,
			ForbidEmotional: true,
		},
		ExtractionFallback: FallbackDeterministic,
		TraceVerbosity:     VerbosityStandard,
		InterviewMode:      ModeHybrid,
		SeverityTiersEnabled: map[Severity]bool{
			SeverityLaxed:    true,
			SeverityStandard: true,
			SeverityStrict:   true,
		},
	}
}

// MaxProbesFor resolves the probe budget, preferring the topic override.
func (c *DiscretionConfig) MaxProbesFor(topic Topic) int {
	if p, ok := c.TopicProfiles[topic]; ok && p.DefaultMaxProbes > 0 {
		return p.DefaultMaxProbes
	}
	return c.MaxProbesPerIncident
}

// ToneFor resolves the clarifier tone: global override wins, then topic
// profile, then neutral.
func (c *DiscretionConfig) ToneFor(topic Topic) Tone {
	if c.ToneControl != "" {
		return c.ToneControl
	}
	if p, ok := c.TopicProfiles[topic]; ok && p.DefaultTone != "" {
		return p.DefaultTone
	}
	return ToneNeutral
}

// CategoryEnabled reports whether fact-model probing is switched on for a
// category. An empty enablement list means all categories are enabled.
func (c *DiscretionConfig) CategoryEnabled(categoryID string) bool {
	if len(c.EnabledCategories) == 0 {
		return true
	}
	for _, id := range c.EnabledCategories {
		if id == categoryID {
			return true
		}
	}
	return false
}
