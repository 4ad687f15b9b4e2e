package license

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyNoSignals(t *testing.T) {
	t.Parallel()

	v := Default().Classify(Input{Texts: []string{"", ""}})

	if v.IsFree {
		t.Error("IsFree = true, want false")
	}
	if v.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4", v.Confidence)
	}
	if v.Status != StatusUnsure {
		t.Errorf("Status = %q, want %q", v.Status, StatusUnsure)
	}
	if len(v.Signals.Positive) != 0 || len(v.Signals.Negative) != 0 {
		t.Errorf("Signals = %+v, want empty", v.Signals)
	}
	if v.Reason != "No clear signals detected." {
		t.Errorf("Reason = %q", v.Reason)
	}
}

func TestClassifyPositiveKeywordOnly(t *testing.T) {
	t.Parallel()

	// "NCS" inside the artist text is not the label field, so the
	// definitive label path must not fire; only the keyword channel does.
	v := Default().Classify(Input{Texts: []string{"My Song", "NCS Release royalty free"}})

	if !v.IsFree {
		t.Error("IsFree = false, want true")
	}
	if v.Confidence != 0.55 {
		t.Errorf("Confidence = %v, want 0.55", v.Confidence)
	}
	if v.Status != StatusFree {
		t.Errorf("Status = %q, want %q", v.Status, StatusFree)
	}
	if !reflect.DeepEqual(v.Signals.Positive, []string{"royalty free"}) {
		t.Errorf("Signals.Positive = %v, want [royalty free]", v.Signals.Positive)
	}
}

func TestClassifyDefinitivePositiveLabel(t *testing.T) {
	t.Parallel()

	v := Default().Classify(Input{
		Texts: []string{"Track", "Artist"},
		Label: "NCS",
	})

	if !v.IsFree {
		t.Error("IsFree = false, want true")
	}
	if v.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", v.Confidence)
	}
	if v.Status != StatusFree {
		t.Errorf("Status = %q, want %q", v.Status, StatusFree)
	}
	if !reflect.DeepEqual(v.Signals.Positive, []string{"ncs"}) {
		t.Errorf("Signals.Positive = %v, want [ncs]", v.Signals.Positive)
	}
}

func TestClassifyDefinitiveBadLabel(t *testing.T) {
	t.Parallel()

	v := Default().Classify(Input{
		Texts: []string{"Track", "Artist"},
		Label: "Sony Music Publishing LLC",
	})

	if v.IsFree {
		t.Error("IsFree = true, want false")
	}
	if v.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", v.Confidence)
	}
	if v.Status != StatusCopyrighted {
		t.Errorf("Status = %q, want %q", v.Status, StatusCopyrighted)
	}
	want := []string{"llc", "music publishing", "sony"}
	if !reflect.DeepEqual(v.Signals.Negative, want) {
		t.Errorf("Signals.Negative = %v, want %v", v.Signals.Negative, want)
	}
}

func TestClassifyPublicDomainOverride(t *testing.T) {
	t.Parallel()

	// The date rule outranks even a definitive bad label.
	v := Default().Classify(Input{
		Texts:       []string{"Old Song"},
		Label:       "Sony Music Publishing LLC",
		ReleaseDate: "1900-01-01",
	})

	if !v.IsFree {
		t.Error("IsFree = false, want true")
	}
	if v.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", v.Confidence)
	}
	if v.Status != StatusFree {
		t.Errorf("Status = %q, want %q", v.Status, StatusFree)
	}
	if !strings.Contains(v.Reason, "Public domain") || !strings.Contains(v.Reason, "1900") {
		t.Errorf("Reason = %q, want public domain note with year", v.Reason)
	}
}

func TestClassifySymbolInBlob(t *testing.T) {
	t.Parallel()

	// The ℗ marker lives in the copyright-notice text, not the label field,
	// and must be picked up by the blob scan.
	v := Default().Classify(Input{
		Texts: []string{"Track", "Artist", "℗ 2020 Some Label"},
	})

	if v.IsFree {
		t.Error("IsFree = true, want false")
	}
	if v.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", v.Confidence)
	}
	if !reflect.DeepEqual(v.Signals.Negative, []string{"℗"}) {
		t.Errorf("Signals.Negative = %v, want [℗]", v.Signals.Negative)
	}
}

func TestClassifyUnsureThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         Input
		confidence float64
	}{
		{
			name:       "two negative keywords",
			in:         Input{Texts: []string{"all rights reserved", "unauthorized"}},
			confidence: 0.40,
		},
		{
			name:       "weak bad label only",
			in:         Input{Texts: []string{"Some Track"}, Label: "records"},
			confidence: 0.40,
		},
		{
			name:       "many negatives clamp to floor",
			in:         Input{Texts: []string{"umg wmg sony warner"}},
			confidence: 0.35,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := Default().Classify(tt.in)
			if v.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", v.Confidence, tt.confidence)
			}
			// The reclassification touches the status label only.
			if v.Status != StatusUnsure {
				t.Errorf("Status = %q, want %q", v.Status, StatusUnsure)
			}
		})
	}
}

func TestClassifyWeakBadLabelDragsKeywordScore(t *testing.T) {
	t.Parallel()

	// One positive keyword (0.55) minus weak bad-label evidence (0.10).
	v := Default().Classify(Input{
		Texts: []string{"royalty free beat"},
		Label: "Production",
	})

	if !v.IsFree {
		t.Error("IsFree = false, want true")
	}
	if v.Confidence != 0.45 {
		t.Errorf("Confidence = %v, want 0.45", v.Confidence)
	}
	if v.Status != StatusFree {
		t.Errorf("Status = %q, want %q", v.Status, StatusFree)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	in := Input{
		Texts:       []string{"Song", "Artist One, Artist Two", "© 2019 Warner Records"},
		Label:       "Warner Records LLC",
		ReleaseDate: "2019-05-01",
	}

	c := Default()
	first := c.Classify(in)
	for i := 0; i < 50; i++ {
		if got := c.Classify(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d: verdict %+v != first %+v", i, got, first)
		}
	}
}

func TestClassifyTextOrderIndependent(t *testing.T) {
	t.Parallel()

	a := Default().Classify(Input{Texts: []string{"creative commons", "My Track", "some notice"}})
	b := Default().Classify(Input{Texts: []string{"some notice", "creative commons", "My Track"}})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("verdicts differ across text order: %+v vs %+v", a, b)
	}
}

func TestClassifyCustomConfig(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PositiveKeywords: []string{"housemade"},
		PositiveLabels:   map[string]float64{"tiny label": 0.18},
		BadLabels:        map[string]float64{"#": 0.20},
		SymbolBadLabels:  []string{"#"},
	}
	c := New(cfg)

	if v := c.Classify(Input{Texts: []string{"a housemade tune"}}); !v.IsFree || v.Confidence != 0.55 {
		t.Errorf("custom keyword: got %+v", v)
	}
	if v := c.Classify(Input{Label: "Tiny Label"}); !v.IsFree || v.Confidence != 0.93 {
		t.Errorf("custom label: got %+v", v)
	}
	if v := c.Classify(Input{Texts: []string{"track # notice"}}); v.IsFree || v.Confidence != 0.90 {
		t.Errorf("custom symbol: got %+v", v)
	}

	// Mutating the source config after construction must not leak in.
	cfg.PositiveKeywords[0] = "changed"
	if v := c.Classify(Input{Texts: []string{"a housemade tune"}}); !v.IsFree {
		t.Error("classifier observed config mutation after construction")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{name: "nil", texts: nil, want: ""},
		{name: "empties skipped", texts: []string{"", "  ", "A"}, want: "a"},
		{name: "joined and lowered", texts: []string{"My Song", "NCS Release"}, want: "my song ncs release"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Normalize(tt.texts); got != tt.want {
				t.Errorf("Normalize(%v) = %q, want %q", tt.texts, got, tt.want)
			}
		})
	}
}

func TestPublicDomainYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		date string
		year int
		hit  bool
	}{
		{date: "1900-01-01", year: 1900, hit: true},
		{date: "1922", year: 1922, hit: true},
		{date: "1923", year: 1923, hit: false},
		{date: "2020-11-05", year: 2020, hit: false},
		{date: "", hit: false},
		{date: "unknown", hit: false},
		{date: "-5-01", hit: false},
	}

	for _, tt := range tests {
		year, hit := publicDomainYear(tt.date)
		if hit != tt.hit {
			t.Errorf("publicDomainYear(%q) hit = %v, want %v", tt.date, hit, tt.hit)
			continue
		}
		if hit && year != tt.year {
			t.Errorf("publicDomainYear(%q) year = %d, want %d", tt.date, year, tt.year)
		}
	}
}
