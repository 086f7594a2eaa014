package booking

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match strategies
const (
	StrategyScored = "scored"
	StrategyFirst  = "first"
)

// Specificity scores
const (
	ScoreName       = 1
	ScorePartialRef = 2
	ScoreExactRef   = 3
)

// DefaultMatchMargin is the lead the top candidate needs over the runner-up
const DefaultMatchMargin = 1

const minGuestNameRunes = 5

var honorificPattern = regexp.MustCompile(`(?i)^(MR\.|MRS\.|MS\.)\s*`)

// MatchOutcome classifies a match attempt
type MatchOutcome int

const (
	NoMatch MatchOutcome = iota
	Matched
	Ambiguous
)

func (o MatchOutcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no_match"
	}
}

// Candidate is a scored record
type Candidate struct {
	Serial int
	Score  int
	Rule   string
}

// MatchResult is the outcome of associating an inbound message with a booking
type MatchResult struct {
	Outcome    MatchOutcome
	Serial     int
	Rule       string
	Candidates []Candidate
}

// Matcher associates inbound messages with bookings
type Matcher struct {
	Strategy string
	Margin   int
}

// NewMatcher returns a matcher for the given strategy. Unknown strategies
// fall back to scored matching.
func NewMatcher(strategy string) *Matcher {
	if strategy != StrategyFirst {
		strategy = StrategyScored
	}
	return &Matcher{Strategy: strategy, Margin: DefaultMatchMargin}
}

// Resolve dispatches to the configured strategy
func (m *Matcher) Resolve(records []Record, subject, body string) MatchResult {
	if m.Strategy == StrategyFirst {
		serial, ok := m.MatchFirst(records, subject, body)
		if !ok {
			return MatchResult{Outcome: NoMatch}
		}
		return MatchResult{Outcome: Matched, Serial: serial, Rule: "first"}
	}
	return m.Match(records, subject, body)
}

// MatchFirst scans records in store order and returns the first one whose
// reference, supplier reference or guest name occurs in the message.
func (m *Matcher) MatchFirst(records []Record, subject, body string) (int, bool) {
	text := searchText(subject, body)
	for i := range records {
		rec := &records[i]
		if !rec.IsAccepted() {
			continue
		}
		if ref := lowerTrim(rec.OurReference); ref != "" && strings.Contains(text, ref) {
			return rec.Serial, true
		}
		if ref := lowerTrim(rec.SupplierReference); ref != "" && strings.Contains(text, ref) {
			return rec.Serial, true
		}
		if name := cleanGuestName(rec.GuestName); name != "" && strings.Contains(text, name) {
			return rec.Serial, true
		}
	}
	return 0, false
}

// Match scores every accepted record by its most specific rule and returns
// the top candidate only when it beats the runner-up by the margin.
func (m *Matcher) Match(records []Record, subject, body string) MatchResult {
	text := searchText(subject, body)

	var candidates []Candidate
	for i := range records {
		rec := &records[i]
		if !rec.IsAccepted() {
			continue
		}
		if score, rule := scoreRecord(rec, text); score > 0 {
			candidates = append(candidates, Candidate{Serial: rec.Serial, Score: score, Rule: rule})
		}
	}

	if len(candidates) == 0 {
		return MatchResult{Outcome: NoMatch}
	}

	// stable keeps store order among equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	top := candidates[0]
	if len(candidates) == 1 || top.Score-candidates[1].Score >= m.margin() {
		return MatchResult{Outcome: Matched, Serial: top.Serial, Rule: top.Rule, Candidates: candidates}
	}

	var tied []Candidate
	for _, c := range candidates {
		if top.Score-c.Score < m.margin() {
			tied = append(tied, c)
		}
	}
	return MatchResult{Outcome: Ambiguous, Candidates: tied}
}

func (m *Matcher) margin() int {
	if m.Margin < 1 {
		return DefaultMatchMargin
	}
	return m.Margin
}

// scoreRecord returns the best score over the record's identifying fields
func scoreRecord(rec *Record, text string) (int, string) {
	best, rule := 0, ""
	for _, ref := range []string{rec.OurReference, rec.SupplierReference} {
		ref = lowerTrim(ref)
		if ref == "" {
			continue
		}
		if containsToken(text, ref) {
			return ScoreExactRef, "exact_reference"
		}
		if strings.Contains(text, ref) && best < ScorePartialRef {
			best, rule = ScorePartialRef, "partial_reference"
		}
	}
	if best == 0 {
		if name := cleanGuestName(rec.GuestName); name != "" && strings.Contains(text, name) {
			best, rule = ScoreName, "guest_name"
		}
	}
	return best, rule
}

// containsToken reports whether needle occurs in text bounded by
// non-alphanumeric characters or the ends of the text
func containsToken(text, needle string) bool {
	for start := 0; start <= len(text)-len(needle); {
		idx := strings.Index(text[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		if boundaryBefore(text, idx) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[idx:])
		start = idx + size
	}
	return false
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return !isAlnum(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isAlnum(r)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// cleanGuestName strips honorifics and returns the lower-cased name, or ""
// when the remainder is too short to match safely
func cleanGuestName(name string) string {
	clean := strings.TrimSpace(honorificPattern.ReplaceAllString(strings.TrimSpace(name), ""))
	if utf8.RuneCountInString(clean) <= minGuestNameRunes {
		return ""
	}
	return strings.ToLower(clean)
}

func searchText(subject, body string) string {
	return strings.ToLower(subject + " " + body)
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
