package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"clearquest/internal/config"
	"clearquest/internal/model"
)

// FactExtractor pulls fact values out of a candidate's free-text answer and
// merges them into the fact state. This is a required implementation, not
// an optional hook: the interview flow always runs one.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, fm *model.FactModel, fs model.FactState, answerText string) (model.FactState, error)
}

// applyExtracted merges newly extracted values into the state, recomputes
// completion, and resolves severity once every severity fact is collected.
// Already-collected facts are never overwritten.
func applyExtracted(fm *model.FactModel, fs model.FactState, extracted map[model.FactKey]string, cfg *model.DiscretionConfig, categoryID string) model.FactState {
	if fs.Facts == nil {
		fs.Facts = make(map[model.FactKey]string)
	}
	for k, v := range extracted {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.TrimSpace(fs.Facts[k]) != "" {
			continue
		}
		fs.Facts[k] = v
	}
	fs.RecomputeCompletion(fm)
	if fs.Severity == model.SeverityNone && model.SeverityFactsComplete(fm, fs) {
		fs.Severity = resolveSeverity(fm, fs, cfg, categoryID)
	}
	return fs
}

// resolveSeverity derives the tier from collected severity facts, starting
// from the category default and upgrading on aggravating values.
func resolveSeverity(fm *model.FactModel, fs model.FactState, cfg *model.DiscretionConfig, categoryID string) model.Severity {
	sev := model.SeverityStandard
	if cfg != nil {
		if def, ok := cfg.CategorySeverityDefaults[categoryID]; ok && def != model.SeverityNone {
			sev = def
		}
	}
	for _, k := range fm.SeverityFacts {
		v := strings.ToLower(fs.Facts[k])
		switch {
		case strings.Contains(v, "felony"), strings.Contains(v, "conviction"),
			strings.Contains(v, "injur"), strings.Contains(v, "arrest"):
			return model.SeverityStrict
		case strings.Contains(v, "dismissed"), strings.Contains(v, "no charges"),
			strings.Contains(v, "expunged"):
			sev = model.SeverityLaxed
		}
	}
	return sev
}

// KeywordExtractor is the deterministic, always-available extractor. It
// matches anchor-specific patterns against the answer text.
type KeywordExtractor struct {
	config     *model.DiscretionConfig
	categoryID string
}

// NewKeywordExtractor creates the deterministic extractor for one incident.
func NewKeywordExtractor(cfg *model.DiscretionConfig, categoryID string) *KeywordExtractor {
	return &KeywordExtractor{config: cfg, categoryID: categoryID}
}

var (
	monthYearPattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?,?\s+(19|20)\d{2}\b`)
	datePattern      = regexp.MustCompile(`\b(19|20)\d{2}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/(19|20)\d{2}\b`)
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	locationPattern  = regexp.MustCompile(`\b(?:in|at|near)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)*(?:,\s*[A-Z]{2})?)`)
	agencyPattern    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)*\s(?:Police Department|Sheriff'?s? (?:Office|Department)|Highway Patrol|PD))\b`)
	// A bare ".09" starts between two non-word characters, so the leading
	// alternative uses \B instead of \b.
	bacPattern = regexp.MustCompile(`\b0\.\d{2}\b|\B\.\d{2}\b`)
)

// ExtractFacts matches deterministic patterns per fact key. Facts with no
// pattern stay uncollected and keep driving clarifier questions.
func (e *KeywordExtractor) ExtractFacts(_ context.Context, fm *model.FactModel, fs model.FactState, answerText string) (model.FactState, error) {
	extracted := make(map[model.FactKey]string)
	for _, key := range fm.AllFactKeys() {
		if v := matchFact(key, answerText); v != "" {
			extracted[key] = v
		}
	}
	return applyExtracted(fm, fs, extracted, e.config, e.categoryID), nil
}

func matchFact(key model.FactKey, text string) string {
	switch key {
	case "month_year":
		return monthYearPattern.FindString(text)
	case "date":
		if m := datePattern.FindString(text); m != "" {
			return m
		}
		if m := monthYearPattern.FindString(text); m != "" {
			return m
		}
		return yearPattern.FindString(text)
	case "location":
		if m := locationPattern.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	case "agency_name":
		if m := agencyPattern.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	case "bac_level":
		return bacPattern.FindString(text)
	}
	return ""
}

// AIExtractor calls a remote model to extract facts, with the keyword
// extractor as its unconfigured fallback. Remote failures surface as errors
// so the discretion engine can apply the configured fallback policy.
type AIExtractor struct {
	config  *config.AIExtractorConfig
	policy  *model.DiscretionConfig
	client  *http.Client
	keyword *KeywordExtractor
}

// NewAIExtractor creates the remote extractor for one incident category.
func NewAIExtractor(cfg *config.AIExtractorConfig, policy *model.DiscretionConfig, categoryID string) *AIExtractor {
	return &AIExtractor{
		config:  cfg,
		policy:  policy,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		keyword: NewKeywordExtractor(policy, categoryID),
	}
}

// ExtractFacts asks the model for a JSON object mapping fact keys to
// values. When the API key is not configured the deterministic extractor
// runs instead.
func (e *AIExtractor) ExtractFacts(ctx context.Context, fm *model.FactModel, fs model.FactState, answerText string) (model.FactState, error) {
	if !e.config.Enabled() {
		return e.keyword.ExtractFacts(ctx, fm, fs, answerText)
	}

	prompt := e.buildExtractionPrompt(fm, fs, answerText)
	response, err := e.callModel(ctx, prompt)
	if err != nil {
		return fs, fmt.Errorf("fact extraction failed: %w", err)
	}

	var extracted map[model.FactKey]string
	if err := json.Unmarshal([]byte(response), &extracted); err != nil {
		return fs, fmt.Errorf("fact extraction returned invalid JSON: %w", err)
	}

	return applyExtracted(fm, fs, extracted, e.policy, e.keyword.categoryID), nil
}

func (e *AIExtractor) buildExtractionPrompt(fm *model.FactModel, fs model.FactState, answerText string) string {
	missing := model.MissingFacts(fm, fs)
	keys := make([]string, len(missing))
	for i, k := range missing {
		keys[i] = string(k)
	}
	return fmt.Sprintf(`You are extracting structured facts from a background interview answer.
Return ONLY a valid JSON object mapping fact keys to extracted string values.
Omit any key the answer does not state. Never guess or infer missing values.

Fact keys to extract: %s
Candidate's answer: %q`, strings.Join(keys, ", "), answerText)
}

// callModel makes a request to the generative API, mirroring its
// generateContent request and response shape.
func (e *AIExtractor) callModel(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", e.config.BaseURL, e.config.Model, e.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var modelResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &modelResp); err != nil {
		return "", err
	}
	if len(modelResp.Candidates) > 0 && len(modelResp.Candidates[0].Content.Parts) > 0 {
		return modelResp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("empty response from extraction model")
}
