package service

import (
	"context"
	"testing"

	"clearquest/internal/model"
)

func TestKeywordExtractor(t *testing.T) {
	fm := &model.FactModel{
		CategoryID:     "DUI",
		MandatoryFacts: []model.FactKey{"date", "location", "agency_name", "outcome"},
		OptionalFacts:  []model.FactKey{"bac_level"},
	}
	cfg := model.DefaultDiscretionConfig()
	e := NewKeywordExtractor(cfg, "DUI")

	tests := []struct {
		name   string
		answer string
		want   map[model.FactKey]string
	}{
		{
			name:   "month year and city",
			answer: "It happened in Phoenix, AZ during March 2019 after a party.",
			want: map[model.FactKey]string{
				"date":     "March 2019",
				"location": "Phoenix, AZ",
			},
		},
		{
			name:   "agency and bac",
			answer: "I was stopped by the Mesa Police Department and blew a .09",
			want: map[model.FactKey]string{
				"agency_name": "Mesa Police Department",
				"bac_level":   ".09",
			},
		},
		{
			name:   "bac without leading zero",
			answer: "The breathalyzer read .09 at the station.",
			want: map[model.FactKey]string{
				"bac_level": ".09",
			},
		},
		{
			name:   "bac with leading zero",
			answer: "I blew a 0.12 that night.",
			want: map[model.FactKey]string{
				"bac_level": "0.12",
			},
		},
		{
			name:   "iso date",
			answer: "The arrest was on 2019-03-04.",
			want: map[model.FactKey]string{
				"date": "2019-03-04",
			},
		},
		{
			name:   "nothing extractable",
			answer: "it was a long time ago and honestly a blur",
			want:   map[model.FactKey]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := e.ExtractFacts(context.Background(), fm, model.NewFactState(fm), tt.answer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			collected := model.CollectedFacts(fs)
			for k, v := range tt.want {
				if collected[k] != v {
					t.Errorf("fact %s = %q, want %q", k, collected[k], v)
				}
			}
			for k := range collected {
				if _, ok := tt.want[k]; !ok {
					t.Errorf("unexpected fact %s = %q", k, collected[k])
				}
			}
		})
	}
}

func TestApplyExtractedNeverOverwrites(t *testing.T) {
	fm := &model.FactModel{
		CategoryID:     "DUI",
		MandatoryFacts: []model.FactKey{"date", "location"},
	}
	fs := model.NewFactState(fm)
	fs.Facts["date"] = "March 2019"

	got := applyExtracted(fm, fs, map[model.FactKey]string{
		"date":     "June 2021",
		"location": "Mesa",
	}, nil, "DUI")

	if got.Facts["date"] != "March 2019" {
		t.Errorf("collected fact was overwritten: %q", got.Facts["date"])
	}
	if got.Facts["location"] != "Mesa" {
		t.Errorf("new fact not merged: %q", got.Facts["location"])
	}
	if got.CompletionStatus != model.CompletionComplete {
		t.Errorf("completion = %s, want complete", got.CompletionStatus)
	}
}

func TestApplyExtractedResolvesSeverity(t *testing.T) {
	fm := &model.FactModel{
		CategoryID:     "DUI",
		MandatoryFacts: []model.FactKey{"outcome"},
		SeverityFacts:  []model.FactKey{"outcome"},
	}
	cfg := model.DefaultDiscretionConfig()

	t.Run("aggravating outcome goes strict", func(t *testing.T) {
		fs := applyExtracted(fm, model.NewFactState(fm),
			map[model.FactKey]string{"outcome": "felony conviction"}, cfg, "DUI")
		if fs.Severity != model.SeverityStrict {
			t.Errorf("severity = %q, want STRICT", fs.Severity)
		}
	})

	t.Run("dismissed outcome goes laxed", func(t *testing.T) {
		fs := applyExtracted(fm, model.NewFactState(fm),
			map[model.FactKey]string{"outcome": "charges dismissed"}, cfg, "DUI")
		if fs.Severity != model.SeverityLaxed {
			t.Errorf("severity = %q, want LAXED", fs.Severity)
		}
	})

	t.Run("severity facts incomplete stays unresolved", func(t *testing.T) {
		fs := applyExtracted(fm, model.NewFactState(fm), nil, cfg, "DUI")
		if fs.Severity != model.SeverityNone {
			t.Errorf("severity = %q, want unresolved", fs.Severity)
		}
	})
}
