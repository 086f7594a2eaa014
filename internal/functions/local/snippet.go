package local

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxSnippetLength is the default length of a reply preview
const MaxSnippetLength = 200

var (
	replyHeaderPattern = regexp.MustCompile(`(?im)^\s*(?:on\s.+wrote:|-{2,}\s*original message\s*-{2,}|from:\s.+)$`)
	urlPattern         = regexp.MustCompile(`https?://[^\s]+`)
	sentencePattern    = regexp.MustCompile(`[.!?]+\s*`)
)

// Snippet returns a short preview of the reply text written by the sender,
// dropping quoted lines and everything after the first reply header
func Snippet(body string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = MaxSnippetLength
	}
	if loc := replyHeaderPattern.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}

	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}

	content := urlPattern.ReplaceAllString(strings.Join(kept, " "), "")
	content = normalizeText(content)
	if utf8.RuneCountInString(content) <= maxLength {
		return content
	}

	var b strings.Builder
	for _, sentence := range sentencePattern.Split(content, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if b.Len() > 0 && b.Len()+len(sentence)+2 > maxLength {
			break
		}
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		b.WriteString(sentence)
	}
	return truncate(b.String(), maxLength)
}

// truncate cuts at a word boundary when one is reasonably close
func truncate(content string, maxLength int) string {
	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}
	cut := string(runes[:maxLength])
	if idx := strings.LastIndex(cut, " "); idx > maxLength/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}
