package service

import "strings"

// packCategoryOverrides maps exact pack IDs to categories. Checked before
// any keyword rule.
var packCategoryOverrides = map[string]string{
	"PACK_LE_APP_HISTORY_STANDARD": "PRIOR_APPLICATIONS",
	"PACK_INTEGRITY_CORE":          "INTEGRITY",
}

// keywordRule is one substring rule against the upper-cased pack ID.
type keywordRule struct {
	keywords []string
	category string
}

// keywordRules run in fixed priority order: a pack ID matching several
// keywords resolves to the first rule that hits.
var keywordRules = []keywordRule{
	{[]string{"DUI", "DWI"}, "DUI"},
	{[]string{"DOMESTIC"}, "DOMESTIC_VIOLENCE"},
	{[]string{"THEFT"}, "THEFT"},
	{[]string{"DRUG"}, "DRUG_USE"},
	{[]string{"FINANCIAL"}, "FINANCIAL"},
	{[]string{"EMPLOYMENT"}, "EMPLOYMENT_TERMINATION"},
	{[]string{"DRIVING"}, "DRIVING"},
	{[]string{"CRIME", "ARREST", "POLICE"}, "CRIMINAL_HISTORY"},
	{[]string{"LE_APP", "PRIOR", "APPLICATION"}, "PRIOR_APPLICATIONS"},
	{[]string{"INTEGRITY"}, "INTEGRITY"},
}

// MapPackIDToCategory resolves a follow-up pack identifier to an incident
// category. Explicit overrides win, then the keyword scan. ok=false means
// the pack has no fact-model-based tracking and callers fall back to the
// legacy deterministic pack flow.
func MapPackIDToCategory(packID string) (string, bool) {
	if packID == "" {
		return "", false
	}
	upper := strings.ToUpper(packID)
	if cat, ok := packCategoryOverrides[upper]; ok {
		return cat, true
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(upper, kw) {
				return rule.category, true
			}
		}
	}
	return "", false
}
