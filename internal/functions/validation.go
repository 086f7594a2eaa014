package functions

import (
	"fmt"
	"strings"
)

// internalPrefixes mark identifiers issued by our own booking systems
var internalPrefixes = []string{"OSTR", "DIDA", "OTLMA", "DIDAMA", "FILE-", "REF-", "BKG-"}

// ValidateVerdict discards an HCN that is really one of our references and
// enforces the category invariants: Received requires an HCN, Critical
// never carries one.
func ValidateVerdict(v Verdict, b BookingContext) Verdict {
	if v.HCN != "" {
		hcn := strings.TrimSpace(v.HCN)
		lower := strings.ToLower(hcn)
		invalid := false

		if ref := normalizedRef(b.OurReference); ref != "" && overlaps(lower, ref) {
			invalid = true
			v.Reason = fmt.Sprintf("Rejected: '%s' matches our FileNo. ", hcn) + v.Reason
		} else if ref := normalizedRef(b.SupplierReference); ref != "" && overlaps(lower, ref) {
			invalid = true
			v.Reason = fmt.Sprintf("Rejected: '%s' matches SupplierRef. ", hcn) + v.Reason
		}

		if IsInternalReference(lower) {
			invalid = true
			v.Reason = fmt.Sprintf("Rejected: '%s' looks like internal ref. ", hcn) + v.Reason
		}

		if invalid {
			v.HCN = ""
			if v.Category == CategoryReceived {
				v.Category = CategoryNonCritical
			}
		} else {
			v.HCN = hcn
		}
	}

	if v.Category == CategoryCritical {
		v.HCN = ""
	}
	if v.Category == CategoryReceived && v.HCN == "" {
		v.Category = CategoryNonCritical
	}
	return v
}

// IsInternalReference reports whether s carries one of our reference prefixes
func IsInternalReference(s string) bool {
	lower := strings.ToLower(s)
	for _, prefix := range internalPrefixes {
		if strings.Contains(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func normalizedRef(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func overlaps(a, b string) bool {
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
