package booking

// Overview counts the current state of accepted bookings
type Overview struct {
	Total       int `json:"total"`
	Received    int `json:"received"`
	Critical    int `json:"critical"`
	NonCritical int `json:"non_critical"`
	Pending     int `json:"pending"`
	Emailed     int `json:"emailed"`
	Reminded    int `json:"reminded"`
}

// Summarize computes the overview over accepted records
func Summarize(records []Record) Overview {
	var o Overview
	for i := range records {
		rec := &records[i]
		if !rec.IsAccepted() {
			continue
		}
		o.Total++
		switch rec.Issue {
		case IssueReceived:
			o.Received++
		case IssueCritical:
			o.Critical++
		case IssueNonCritical:
			o.NonCritical++
		case IssuePending:
			o.Pending++
		}
		if rec.WasEmailed() {
			o.Emailed++
		}
		if rec.WasReminded() {
			o.Reminded++
		}
	}
	return o
}

// Critical returns accepted bookings whose reply reported a blocking problem
func Critical(records []Record) []Record {
	return filter(records, func(r *Record) bool { return r.Issue == IssueCritical })
}

// Pending returns accepted bookings with no classified reply, up to limit
// entries when limit is positive
func Pending(records []Record, limit int) []Record {
	out := filter(records, func(r *Record) bool { return r.Issue == IssuePending })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func filter(records []Record, keep func(*Record) bool) []Record {
	out := []Record{}
	for i := range records {
		if records[i].IsAccepted() && keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
