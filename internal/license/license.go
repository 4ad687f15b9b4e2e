// Package license implements the heuristic copyright classifier.
//
// The classifier is a pure function over free-text metadata (track name,
// artist names, copyright notices), an optional record-label string, and an
// optional release date. It never performs I/O, never fails, and always
// returns a usable low-confidence verdict for empty or malformed input.
package license

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Status is the display classification attached to a Verdict.
type Status string

const (
	StatusFree        Status = "free"
	StatusCopyrighted Status = "copyrighted"
	StatusUnsure      Status = "unsure"
)

const (
	// unsureThreshold reclassifies the displayed status (never the
	// confidence itself) when the verdict is too weak to trust.
	unsureThreshold = 0.45

	// publicDomainCutoff: recordings released before this year are treated
	// as public domain regardless of every other signal.
	publicDomainCutoff = 1923

	// definitiveBadWeight: cumulative bad-label weight above this value is a
	// definitive copyrighted signal.
	definitiveBadWeight = 0.15
)

// Signals lists the matched indicators behind a verdict, for explainability.
type Signals struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// Verdict is the immutable result of one classification call.
type Verdict struct {
	IsFree     bool    `json:"is_free"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
	Signals    Signals `json:"signals"`
	Reason     string  `json:"reason"`
}

// Input bundles the metadata for one classification call. Texts is an
// unordered bag of free-text fields; order never affects the verdict.
// Label is the record label / publisher string, matched on a separate
// higher-confidence path. ReleaseDate feeds only the public-domain cutoff.
type Input struct {
	Texts       []string
	Label       string
	ReleaseDate string
}

// Config holds the rule tables. A Classifier copies its Config at
// construction, so tables can be swapped or tested independently of the
// decision policy and are immutable once a Classifier exists.
type Config struct {
	PositiveKeywords []string
	NegativeKeywords []string

	// PositiveLabels maps known free-music publishers to confidence
	// weights. A hit on the label field is a definitive free signal.
	PositiveLabels map[string]float64

	// BadLabels maps copyright markers to weights. Cumulative weight above
	// definitiveBadWeight is a definitive copyrighted signal.
	BadLabels map[string]float64

	// SymbolBadLabels is the subset of BadLabels keys (copyright symbols
	// and notations) additionally searched in the full text blob, since
	// they usually appear inside copyright-notice text rather than the
	// label field.
	SymbolBadLabels []string
}

// DefaultConfig returns the stock rule tables.
func DefaultConfig() Config {
	return Config{
		PositiveKeywords: []string{
			"public domain", "cc0", "cc 0", "creative commons",
			"royalty free", "royalty-free", "free to use", "free use",
			"copyright free", "copyright-free", "no copyright",
			"youtube safe", "free for commercial", "free for monetization",
			"license free",
		},
		NegativeKeywords: []string{
			"all rights reserved", "exclusive license", "licensed to",
			"unauthorized", "broadcast prohibited", "not for resale",
			"for promotional use only", "umg", "universal music", "sony",
			"warner", "wmg", "sme", "atlantic records", "columbia records",
			"rca records", "def jam", "republic records", "interscope",
		},
		PositiveLabels: map[string]float64{
			"ncs":               0.25,
			"nocopyrightsounds": 0.25,
			"chillhop records":  0.22,
			"chillhop music":    0.22,
			"audio library":     0.20,
			"streambeats":       0.20,
			"infraction":        0.18,
		},
		BadLabels: map[string]float64{
			"©":                0.20,
			"℗":                0.20,
			"(c)":              0.15,
			"(p)":              0.15,
			"rights reserved":  0.20,
			"copyrighted":      0.15,
			"music publishing": 0.15,
			"sony":             0.12,
			"universal":        0.12,
			"umg":              0.12,
			"warner":           0.12,
			"wmg":              0.12,
			"records":          0.10,
			"llc":              0.10,
			"production":       0.10,
		},
		SymbolBadLabels: []string{"©", "℗", "(c)", "(p)"},
	}
}

// Classifier applies the rule cascade to metadata bundles. Safe for
// concurrent use; it holds no mutable state.
type Classifier struct {
	cfg Config
}

// New builds a Classifier from cfg. The tables are copied so later mutation
// of the caller's Config cannot change verdicts.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: Config{
		PositiveKeywords: append([]string(nil), cfg.PositiveKeywords...),
		NegativeKeywords: append([]string(nil), cfg.NegativeKeywords...),
		PositiveLabels:   copyWeights(cfg.PositiveLabels),
		BadLabels:        copyWeights(cfg.BadLabels),
		SymbolBadLabels:  append([]string(nil), cfg.SymbolBadLabels...),
	}}
}

// Default returns a Classifier with the stock tables.
func Default() *Classifier {
	return New(DefaultConfig())
}

func copyWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// evidence is everything the matchers extracted from one input bundle.
type evidence struct {
	posKeywords []string
	negKeywords []string
	posLabels   []string
	posLabelSum float64
	badLabels   []string
	badLabelSum float64
	pdYear      int
	pdHit       bool
}

func (e *evidence) empty() bool {
	return len(e.posKeywords) == 0 && len(e.negKeywords) == 0 &&
		len(e.posLabels) == 0 && len(e.badLabels) == 0
}

// verdictCore is a rule's opinion on the is_free decision.
type verdictCore struct {
	isFree     bool
	confidence float64
}

// A rule inspects the evidence and either returns a definitive verdict core
// or nil ("no opinion"). The cascade stops at the first definitive result.
type rule func(*evidence) *verdictCore

// rules, in strict priority order. keywordScore always decides,
// so the cascade never falls through.
var rules = []rule{
	publicDomainRule,
	positiveLabelRule,
	badLabelRule,
	keywordScoreRule,
}

// Classify maps one metadata bundle to a Verdict. Pure and deterministic:
// identical input always yields an identical verdict.
func (c *Classifier) Classify(in Input) Verdict {
	blob := Normalize(in.Texts)
	label := strings.ToLower(strings.TrimSpace(in.Label))

	ev := &evidence{
		posKeywords: matchKeywords(c.cfg.PositiveKeywords, blob),
		negKeywords: matchKeywords(c.cfg.NegativeKeywords, blob),
	}
	ev.posLabels, ev.posLabelSum = matchLabels(c.cfg.PositiveLabels, label, nil, "")
	ev.badLabels, ev.badLabelSum = matchLabels(c.cfg.BadLabels, label, c.cfg.SymbolBadLabels, blob)
	ev.pdYear, ev.pdHit = publicDomainYear(in.ReleaseDate)

	var core *verdictCore
	for _, r := range rules {
		if core = r(ev); core != nil {
			break
		}
	}

	confidence := math.Round(core.confidence*100) / 100

	status := StatusCopyrighted
	if core.isFree {
		status = StatusFree
	}
	if confidence < unsureThreshold {
		status = StatusUnsure
	}

	return Verdict{
		IsFree:     core.isFree,
		Confidence: confidence,
		Status:     status,
		Signals: Signals{
			Positive: concat(ev.posKeywords, ev.posLabels),
			Negative: concat(ev.negKeywords, ev.badLabels),
		},
		Reason: buildReason(ev),
	}
}

func publicDomainRule(ev *evidence) *verdictCore {
	if !ev.pdHit {
		return nil
	}
	return &verdictCore{isFree: true, confidence: 0.95}
}

func positiveLabelRule(ev *evidence) *verdictCore {
	if len(ev.posLabels) == 0 {
		return nil
	}
	return &verdictCore{
		isFree:     true,
		confidence: math.Min(0.95, 0.75+math.Min(0.20, ev.posLabelSum)),
	}
}

func badLabelRule(ev *evidence) *verdictCore {
	if ev.badLabelSum <= definitiveBadWeight {
		return nil
	}
	return &verdictCore{
		isFree:     false,
		confidence: math.Min(0.90, 0.70+math.Min(0.20, ev.badLabelSum)),
	}
}

func keywordScoreRule(ev *evidence) *verdictCore {
	score := len(ev.posKeywords) - len(ev.negKeywords)
	core := &verdictCore{isFree: score > 0}

	if ev.empty() {
		core.confidence = 0.4
		return core
	}

	confidence := 0.50
	if score > 0 {
		confidence += math.Min(0.15, float64(score)*0.05)
	} else if score < 0 {
		confidence -= math.Min(0.15, float64(-score)*0.05)
	}
	// Weak bad-label evidence below the definitive threshold still drags
	// the score down.
	if ev.badLabelSum > 0 {
		confidence -= math.Min(0.10, ev.badLabelSum)
	}
	core.confidence = clamp(confidence, 0.35, 0.70)
	return core
}

// Normalize flattens the supplied text fields into the lower-cased,
// space-joined blob used for substring search. Empty fields contribute
// nothing; nil input yields the empty string.
func Normalize(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, strings.ToLower(t))
	}
	return strings.Join(parts, " ")
}

// matchKeywords returns the keywords occurring in blob, in table order.
// Plain substring containment: no stemming, no word boundaries.
func matchKeywords(keywords []string, blob string) []string {
	matched := make([]string, 0, 2)
	if blob == "" {
		return matched
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(blob, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// matchLabels scans the label field for every dictionary key, and the blob
// for the symbol subset. Each key counts once even when it occurs on both
// channels. Matched keys are returned sorted so verdicts stay deterministic.
func matchLabels(dict map[string]float64, label string, symbols []string, blob string) ([]string, float64) {
	hits := make(map[string]bool)
	if label != "" {
		for key := range dict {
			if key != "" && strings.Contains(label, key) {
				hits[key] = true
			}
		}
	}
	if blob != "" {
		for _, key := range symbols {
			if _, ok := dict[key]; ok && strings.Contains(blob, key) {
				hits[key] = true
			}
		}
	}

	matched := make([]string, 0, len(hits))
	var sum float64
	for key := range hits {
		matched = append(matched, key)
		sum += dict[key]
	}
	sort.Strings(matched)
	return matched, sum
}

// publicDomainYear parses the leading hyphen-delimited segment of date as a
// year. Unparseable or non-positive values are silently ignored.
func publicDomainYear(date string) (int, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	year, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, year < publicDomainCutoff
}

// buildReason assembles the human-readable summary in fixed clause order.
func buildReason(ev *evidence) string {
	var parts []string
	if ev.pdHit {
		parts = append(parts, fmt.Sprintf("Public domain release (%d).", ev.pdYear))
	}
	if len(ev.posKeywords) > 0 {
		parts = append(parts, "Positive signals: "+strings.Join(ev.posKeywords, ", ")+".")
	}
	if len(ev.posLabels) > 0 {
		parts = append(parts, "Known free-music label: "+strings.Join(ev.posLabels, ", ")+".")
	}
	if len(ev.negKeywords) > 0 {
		parts = append(parts, "Negative signals: "+strings.Join(ev.negKeywords, ", ")+".")
	}
	if len(ev.badLabels) > 0 {
		parts = append(parts, "Copyright markers: "+strings.Join(ev.badLabels, ", ")+".")
	}
	if len(parts) == 0 {
		return "No clear signals detected."
	}
	return strings.Join(parts, " ")
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
