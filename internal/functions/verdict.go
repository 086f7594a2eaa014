package functions

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidVerdict indicates the oracle output could not be decoded
	ErrInvalidVerdict = errors.New("invalid classification response")

	errNoOracle = errors.New("no oracle configured")
)

// Category is the classification of a reply
type Category string

const (
	CategoryReceived    Category = "Received"
	CategoryCritical    Category = "Critical"
	CategoryNonCritical Category = "Non Critical"
)

// FailedReason is reported when the oracle could not be used
const FailedReason = "Analysis failed"

// ParseCategory maps free text onto a category, case-insensitively.
// Anything unrecognised is Non Critical.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "received":
		return CategoryReceived
	case "critical":
		return CategoryCritical
	default:
		return CategoryNonCritical
	}
}

// Verdict is the outcome of classifying one reply
type Verdict struct {
	HCN         string   `json:"hcn"`
	Category    Category `json:"category"`
	Reason      string   `json:"reason"`
	ProcessedBy string   `json:"processed_by"`
}

// FailOpen is the verdict used whenever classification cannot complete
func FailOpen() Verdict {
	return Verdict{Category: CategoryNonCritical, Reason: FailedReason}
}

var (
	fenceStart = regexp.MustCompile("^```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("\\s*```$")
)

// StripCodeFences removes a surrounding ``` or ```json fence
func StripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "```") {
		return raw
	}
	raw = fenceStart.ReplaceAllString(raw, "")
	raw = fenceEnd.ReplaceAllString(raw, "")
	return strings.TrimSpace(raw)
}

type rawVerdict struct {
	HCNNumber json.RawMessage `json:"hcn_number"`
	Category  string          `json:"category"`
	Reason    json.RawMessage `json:"reason"`
}

// ParseVerdict decodes the oracle's JSON answer. A missing category means
// Non Critical; the strings "null", "none" and "n/a" count as no HCN.
func ParseVerdict(raw string) (Verdict, error) {
	var rv rawVerdict
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &rv); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}

	hcn := scalarString(rv.HCNNumber)
	switch strings.ToLower(hcn) {
	case "null", "none", "n/a":
		hcn = ""
	}

	return Verdict{
		HCN:      hcn,
		Category: ParseCategory(rv.Category),
		Reason:   scalarString(rv.Reason),
	}, nil
}

// scalarString renders a JSON string or number; anything else becomes ""
func scalarString(msg json.RawMessage) string {
	if len(msg) == 0 {
		return ""
	}

	var v interface{}
	if err := json.Unmarshal(msg, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
