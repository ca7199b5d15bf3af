package service

import "testing"

func TestMapPackIDToCategory(t *testing.T) {
	tests := []struct {
		packID   string
		category string
		mapped   bool
	}{
		{"PACK_DRIVING_DUIDWI_STANDARD", "DUI", true},
		{"PACK_DUI_FIRST_OFFENSE", "DUI", true},
		{"PACK_VIOLENCE_DOMESTIC_STANDARD", "DOMESTIC_VIOLENCE", true},
		{"PACK_THEFT_RETAIL", "THEFT", true},
		{"PACK_DRUGS_USE_STANDARD", "DRUG_USE", true},
		{"PACK_FINANCIAL_BANKRUPTCY", "FINANCIAL", true},
		{"PACK_EMPLOYMENT_TERMINATION_STANDARD", "EMPLOYMENT_TERMINATION", true},
		{"PACK_DRIVING_SUSPENSION", "DRIVING", true},
		{"PACK_CRIME_MISDEMEANOR", "CRIMINAL_HISTORY", true},
		{"PACK_LE_APP_PRIOR_STANDARD", "PRIOR_APPLICATIONS", true},
		{"PACK_INTEGRITY_DISHONESTY", "INTEGRITY", true},
		{"pack_dui_lowercase", "DUI", true},
		{"PACK_UNKNOWN_THING", "", false},
		// The seeded questions-only pack must stay outside every keyword
		// rule so sessions take the deterministic flow.
		{"PACK_RESIDENCE_HISTORY_STANDARD", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.packID, func(t *testing.T) {
			category, mapped := MapPackIDToCategory(tt.packID)
			if mapped != tt.mapped {
				t.Fatalf("mapped = %v, want %v", mapped, tt.mapped)
			}
			if category != tt.category {
				t.Errorf("category = %q, want %q", category, tt.category)
			}
		})
	}
}

func TestMapPackIDKeywordPriority(t *testing.T) {
	// DUI outranks DRIVING when both keywords are present
	category, mapped := MapPackIDToCategory("PACK_DRIVING_DUI_AGGRAVATED")
	if !mapped || category != "DUI" {
		t.Errorf("expected DUI to win over DRIVING, got %q (mapped=%v)", category, mapped)
	}

	// DOMESTIC outranks the generic crime keywords
	category, mapped = MapPackIDToCategory("PACK_DOMESTIC_ARREST")
	if !mapped || category != "DOMESTIC_VIOLENCE" {
		t.Errorf("expected DOMESTIC_VIOLENCE to win, got %q (mapped=%v)", category, mapped)
	}
}
