package booking

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TimeLayout is the timestamp format stored in EmailSentTime and ReminderTime
const TimeLayout = "2006-01-02 15:04:05"

// Yes is the marker value of EmailSent and ReminderSent
const Yes = "Yes"

// Issue is the reply classification stored on a booking
type Issue string

const (
	IssuePending     Issue = ""
	IssueReceived    Issue = "Received"
	IssueCritical    Issue = "Critical"
	IssueNonCritical Issue = "Non Critical"
)

// ParseIssue maps a sheet value onto an Issue. Unknown text is kept verbatim.
func ParseIssue(s string) Issue {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return IssuePending
	case "received":
		return IssueReceived
	case "critical":
		return IssueCritical
	case "non critical", "non-critical", "noncritical":
		return IssueNonCritical
	}
	return Issue(s)
}

// IsTerminal reports whether no further classification or reminder applies
func (i Issue) IsTerminal() bool {
	return i == IssueReceived || i == IssueCritical
}

// Sheet column names
const (
	ColSerial        = "SrNo"
	ColStatus        = "Status"
	ColGuestName     = "GuestName"
	ColHotelName     = "HotelName"
	ColCityName      = "CityName"
	ColCountryName   = "CountryName"
	ColFromDate      = "FromDate"
	ColToDate        = "ToDate"
	ColRoomType      = "RoomType"
	ColNoOfRooms     = "NoOFRooms"
	ColNoOfPax       = "NoOfPax"
	ColSupplierName  = "SupplierName"
	ColFileNo        = "FileNo"
	ColSupplierRef   = "SupplierRef"
	ColSupplierHCN   = "SupplierHCN"
	ColAgentName     = "AgentName"
	ColAgentEmail    = "Agent Email"
	ColBookingDate   = "BookingDate"
	ColEmailSent     = "EmailSent"
	ColEmailSentTime = "EmailSentTime"
	ColReminderSent  = "ReminderSent"
	ColReminderTime  = "ReminderTime"
	ColIssue         = "Issue"
)

// TrackedColumns are the only columns the workflow ever writes
var TrackedColumns = []string{
	ColEmailSent, ColEmailSentTime, ColReminderSent, ColReminderTime, ColIssue, ColSupplierHCN,
}

// acceptedStatuses are the booking statuses the workflow acts on
var acceptedStatuses = map[string]bool{
	"confirmed": true,
	"vouchered": true,
}

// Store errors
var (
	// ErrStoreUnavailable is returned when the booking store cannot be read or written
	ErrStoreUnavailable = errors.New("booking store unavailable")
	// ErrRecordNotFound is returned when no record carries the requested serial
	ErrRecordNotFound = errors.New("booking not found")
)

// Store is the tabular booking source of truth
type Store interface {
	ReadAll(ctx context.Context) ([]Record, error)
	WriteBack(ctx context.Context, changed []Record) error
}

// Record is one booking row
type Record struct {
	Row    int `json:"-"`
	Serial int `json:"sr_no"`

	Status            string `json:"status"`
	GuestName         string `json:"guest_name"`
	HotelName         string `json:"hotel_name"`
	CityName          string `json:"city_name"`
	CountryName       string `json:"country_name"`
	FromDate          string `json:"from_date"`
	ToDate            string `json:"to_date"`
	RoomType          string `json:"room_type"`
	NoOfRooms         string `json:"no_of_rooms"`
	NoOfPax           string `json:"no_of_pax"`
	SupplierName      string `json:"supplier_name"`
	OurReference      string `json:"file_no"`
	SupplierReference string `json:"supplier_ref"`
	SupplierHCN       string `json:"supplier_hcn"`
	AgentName         string `json:"agent_name"`
	AgentEmail        string `json:"agent_email"`
	BookingDate       string `json:"booking_date"`

	EmailSent      string `json:"email_sent"`
	EmailSentAt    string `json:"email_sent_time"`
	ReminderSent   string `json:"reminder_sent"`
	ReminderSentAt string `json:"reminder_time"`
	Issue          Issue  `json:"issue"`

	Fields map[string]string `json:"full_details,omitempty"`
}

// NormalizedStatus returns the lower-cased, trimmed status
func (r *Record) NormalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(r.Status))
}

// IsAccepted reports whether the booking status is confirmed or vouchered
func (r *Record) IsAccepted() bool {
	return acceptedStatuses[r.NormalizedStatus()]
}

// HasHCN reports whether a confirmation number is recorded
func (r *Record) HasHCN() bool {
	return strings.TrimSpace(r.SupplierHCN) != ""
}

// WasEmailed reports whether the initial request went out
func (r *Record) WasEmailed() bool {
	return strings.TrimSpace(r.EmailSent) == Yes
}

// WasReminded reports whether the single reminder went out
func (r *Record) WasReminded() bool {
	return strings.TrimSpace(r.ReminderSent) == Yes
}

// Recipient returns the trimmed agent email when it looks like an address
func (r *Record) Recipient() (string, bool) {
	addr := strings.TrimSpace(r.AgentEmail)
	if addr == "" || !strings.Contains(addr, "@") {
		return "", false
	}
	return addr, true
}

// NeedsInitialEmail reports whether the SEND phase should contact this booking
func (r *Record) NeedsInitialEmail() bool {
	return r.IsAccepted() && !r.HasHCN() && !r.WasEmailed()
}

// MarkEmailed records a successful initial send
func (r *Record) MarkEmailed(now time.Time) {
	r.EmailSent = Yes
	r.EmailSentAt = now.Format(TimeLayout)
}

// MarkReminded records a successful reminder send
func (r *Record) MarkReminded(now time.Time) {
	r.ReminderSent = Yes
	r.ReminderSentAt = now.Format(TimeLayout)
}

// Tracked is the subset of a record the workflow mutates
type Tracked struct {
	EmailSent      string
	EmailSentAt    string
	ReminderSent   string
	ReminderSentAt string
	Issue          Issue
	SupplierHCN    string
}

// Tracked returns the mutable fields for diffing
func (r *Record) Tracked() Tracked {
	return Tracked{
		EmailSent:      r.EmailSent,
		EmailSentAt:    r.EmailSentAt,
		ReminderSent:   r.ReminderSent,
		ReminderSentAt: r.ReminderSentAt,
		Issue:          r.Issue,
		SupplierHCN:    r.SupplierHCN,
	}
}

// TrackedValues maps tracked column names to their current values
func (r *Record) TrackedValues() map[string]string {
	return map[string]string{
		ColEmailSent:     r.EmailSent,
		ColEmailSentTime: r.EmailSentAt,
		ColReminderSent:  r.ReminderSent,
		ColReminderTime:  r.ReminderSentAt,
		ColIssue:         string(r.Issue),
		ColSupplierHCN:   r.SupplierHCN,
	}
}

// Snapshot captures tracked fields by serial
func Snapshot(records []Record) map[int]Tracked {
	snap := make(map[int]Tracked, len(records))
	for i := range records {
		snap[records[i].Serial] = records[i].Tracked()
	}
	return snap
}

// Changed returns the records whose tracked fields differ from the snapshot
func Changed(records []Record, snap map[int]Tracked) []Record {
	var out []Record
	for i := range records {
		before, ok := snap[records[i].Serial]
		if !ok || before != records[i].Tracked() {
			out = append(out, records[i])
		}
	}
	return out
}

// Find returns the index of the record with the given serial, or -1
func Find(records []Record, serial int) int {
	for i := range records {
		if records[i].Serial == serial {
			return i
		}
	}
	return -1
}

// Accepted filters records to confirmed and vouchered bookings
func Accepted(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.IsAccepted() {
			out = append(out, r)
		}
	}
	return out
}
