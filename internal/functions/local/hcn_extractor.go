package local

import (
	"regexp"
	"sort"
	"strings"
)

// Labelled confirmation number patterns, most specific first
var hcnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:hotel\s+confirmation|hcn)\s*(?:number|no\.?|#|code)?\s*(?:is|:|-|=)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,24})`),
	regexp.MustCompile(`(?i)\bconfirmation\s*(?:number|no\.?|#|code|id)\s*(?:is|:|-|=)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,24})`),
	regexp.MustCompile(`(?i)\bconf\.?\s*(?:#|no\.?|number)\s*(?:is|:|-|=)?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,24})`),
	regexp.MustCompile(`(?i)\b(?:reservation|booking)\s*(?:id|number|no\.?|#)\s*(?:is|:|-|=)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,24})`),
	regexp.MustCompile(`(?i)\bconfirmed\s+(?:under|with)\s+(?:number\s+)?[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,24})`),
}

// HCNCandidate is a potential confirmation number with its confidence score
type HCNCandidate struct {
	Code       string
	Confidence float64
	Position   int
}

// ExtractHCN returns the most likely hotel confirmation number in the
// content, skipping anything that overlaps one of the excluded references.
// It returns an empty string when nothing qualifies.
func ExtractHCN(content string, exclude ...string) string {
	candidates := ExtractHCNCandidates(content, exclude...)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0].Code
}

// ExtractHCNCandidates returns every qualifying candidate ordered by
// confidence, then position
func ExtractHCNCandidates(content string, exclude ...string) []HCNCandidate {
	if content == "" {
		return nil
	}
	content = normalizeText(content)

	var candidates []HCNCandidate
	seen := make(map[string]bool)

	for i, pattern := range hcnPatterns {
		for _, match := range pattern.FindAllStringSubmatchIndex(content, -1) {
			if len(match) < 4 {
				continue
			}
			code := strings.Trim(content[match[2]:match[3]], "-/")
			key := strings.ToLower(code)
			if seen[key] || !isValidHCN(code) || overlapsAny(code, exclude) {
				continue
			}
			seen[key] = true
			candidates = append(candidates, HCNCandidate{
				Code:       code,
				Confidence: 1.0 - float64(i)*0.15,
				Position:   match[0],
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Position < candidates[j].Position
	})

	return candidates
}

// isValidHCN checks if a string can be a confirmation number
func isValidHCN(code string) bool {
	if len(code) < 3 || len(code) > 25 {
		return false
	}

	digitCount := 0
	for _, c := range code {
		switch {
		case c >= '0' && c <= '9':
			digitCount++
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '-' || c == '/':
		default:
			return false
		}
	}
	if digitCount == 0 {
		return false
	}

	// Bare years
	if len(code) == 4 && digitCount == 4 && (strings.HasPrefix(code, "19") || strings.HasPrefix(code, "20")) {
		return false
	}

	// Phone numbers
	if digitCount == len(code) && digitCount > 12 {
		return false
	}

	// Dates such as 14/03/2025 or 2025-03-14
	if datePattern.MatchString(code) {
		return false
	}

	// Repeated digits
	if digitCount == len(code) && strings.Count(code, code[:1]) == len(code) {
		return false
	}

	return true
}

var datePattern = regexp.MustCompile(`^\d{1,4}[-/]\d{1,2}[-/]\d{1,4}$`)

// overlapsAny reports whether code equals, contains or is contained in any
// non-empty reference, ignoring case
func overlapsAny(code string, refs []string) bool {
	lc := strings.ToLower(code)
	for _, ref := range refs {
		ref = strings.ToLower(strings.TrimSpace(ref))
		if ref == "" {
			continue
		}
		if lc == ref || strings.Contains(lc, ref) || strings.Contains(ref, lc) {
			return true
		}
	}
	return false
}
