package local

import (
	"regexp"
	"strings"
)

// Critical language grouped by the kind of problem it reports
var (
	availabilityKeywords = []string{
		"sold out", "fully booked", "no availability", "no rooms", "no room available",
		"not available", "unavailable", "overbooked", "closed out", "stop sale",
	}

	rateKeywords = []string{
		"rate not available", "rate mismatch", "rate issue", "rate is not valid",
		"price not available", "price mismatch", "rate has changed", "rate difference",
	}

	rejectionKeywords = []string{
		"unable to confirm", "cannot confirm", "can't confirm", "can not confirm",
		"not able to confirm", "booking rejected", "booking declined", "we regret",
		"not possible", "cancelled", "canceled", "declined", "rejected",
	}

	// Holding replies lower the score: "will check and revert" is not critical
	holdingKeywords = []string{
		"will revert", "will get back", "will check", "checking with the hotel",
		"processing your request", "under process", "noted", "acknowledged",
	}

	negatedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnot\s+(?:sold\s+out|cancelled|canceled|rejected)\b`),
		regexp.MustCompile(`(?i)\bno\s+issues?\b`),
	}
)

// CriticalScore is the breakdown of critical language found in a reply
type CriticalScore struct {
	Total        float64
	Availability float64
	Rate         float64
	Rejection    float64
	Holding      float64
	Reason       string
}

// DetectCritical reports whether a reply says the booking cannot be confirmed
func DetectCritical(subject, content string) bool {
	return CalculateCriticalScore(subject, content).Total >= 0.5
}

// CalculateCriticalScore scores subject and body for availability, rate and
// rejection language
func CalculateCriticalScore(subject, content string) CriticalScore {
	score := CriticalScore{}

	combined := strings.ToLower(subject + " " + normalizeText(content))
	for _, p := range negatedPatterns {
		combined = p.ReplaceAllString(combined, " ")
	}

	if kw := firstKeyword(combined, availabilityKeywords); kw != "" {
		score.Availability = 0.6
		score.Reason = "Hotel reports no availability (" + kw + ")"
	}
	if kw := firstKeyword(combined, rateKeywords); kw != "" {
		score.Rate = 0.6
		if score.Reason == "" {
			score.Reason = "Rate problem reported (" + kw + ")"
		}
	}
	if kw := firstKeyword(combined, rejectionKeywords); kw != "" {
		score.Rejection = 0.5
		if score.Reason == "" {
			score.Reason = "Booking cannot be confirmed (" + kw + ")"
		}
	}
	if countKeywordMatches(combined, holdingKeywords) > 0 {
		score.Holding = 0.2
	}

	score.Total = score.Availability + score.Rate + score.Rejection - score.Holding
	if score.Total > 1.0 {
		score.Total = 1.0
	}
	if score.Total < 0 {
		score.Total = 0
	}

	return score
}

// IsHoldingReply reports whether the reply only acknowledges the request
func IsHoldingReply(subject, content string) bool {
	combined := strings.ToLower(subject + " " + normalizeText(content))
	return countKeywordMatches(combined, holdingKeywords) > 0
}

// countKeywordMatches counts how many keywords are found in the text
func countKeywordMatches(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}

func firstKeyword(text string, keywords []string) string {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return keyword
		}
	}
	return ""
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// normalizeText strips HTML tags and entities and collapses whitespace
func normalizeText(content string) string {
	content = htmlTagPattern.ReplaceAllString(content, " ")
	content = strings.ReplaceAll(content, "&nbsp;", " ")
	content = strings.ReplaceAll(content, "&amp;", "&")
	content = strings.ReplaceAll(content, "&#35;", "#")
	content = whitespacePattern.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}
