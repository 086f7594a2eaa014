package booking

import (
	"fmt"
	"strings"
	"time"
)

// DisplayDateLayout is how check-in and check-out dates appear in emails
const DisplayDateLayout = "02-Jan-2006"

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// dateLayouts are tried in order when rendering sheet dates
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02/01/2006",
	"01-02-06",
}

// Composer renders HCN request and reminder emails
type Composer struct {
	SenderName  string
	CompanyName string
}

// NewComposer creates a composer with the given signature lines
func NewComposer(senderName, companyName string) *Composer {
	return &Composer{SenderName: senderName, CompanyName: companyName}
}

// Compose returns subject and body for a booking. It never fails; missing
// fields render as defaults or empty strings.
func (c *Composer) Compose(rec Record, isReminder bool) (subject, body string) {
	guest := orDefault(rec.GuestName, "Guest")
	hotel := orDefault(rec.HotelName, "Hotel")
	fileNo := strings.TrimSpace(rec.OurReference)

	prefix := ""
	if isReminder {
		prefix = "REMINDER: "
	}
	subject = fmt.Sprintf("%sHCN Request - %s | %s | Ref: %s", prefix, guest, hotel, fileNo)

	var b strings.Builder
	b.WriteString("Dear Team,\n\nGreetings!\n")
	if isReminder {
		b.WriteString("\nREMINDER: We have not received the HCN for this booking yet.\n")
	}
	b.WriteString("\nWe kindly request the Hotel Confirmation Number (HCN) for the following booking:\n\n")
	b.WriteString("BOOKING DETAILS:\n")
	b.WriteString(separator + "\n")

	field := func(label, value string) {
		fmt.Fprintf(&b, "%-17s: %s\n", label, value)
	}
	field("Guest Name", guest)
	field("Hotel Name", hotel)
	field("Location", fmt.Sprintf("%s, %s", strings.TrimSpace(rec.CityName), strings.TrimSpace(rec.CountryName)))
	field("Check-in Date", FormatDate(rec.FromDate))
	field("Check-out Date", FormatDate(rec.ToDate))
	field("Room Type", strings.TrimSpace(rec.RoomType))
	field("No. of Rooms", orDefault(rec.NoOfRooms, "1"))
	field("No. of Guests", strings.TrimSpace(rec.NoOfPax))
	field("Supplier", strings.TrimSpace(rec.SupplierName))
	field("Our Reference", fileNo)
	field("Supplier Ref", orDefault(rec.SupplierReference, "N/A"))

	b.WriteString(separator + "\n\n")
	b.WriteString("Please reply with the Hotel Confirmation Number (HCN).\n\n")
	b.WriteString("Best Regards,\n")
	b.WriteString(c.SenderName + "\n")
	b.WriteString(c.CompanyName + "\n\n")
	b.WriteString("Reference: " + fileNo + "\n")

	return subject, b.String()
}

// FormatDate renders a sheet date as DD-Mon-YYYY. Values that do not parse
// are returned trimmed and unchanged.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Format(DisplayDateLayout)
		}
	}
	return s
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
