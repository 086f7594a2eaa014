package functions

import (
	"fmt"
)

// MaxPromptBodyRunes bounds the reply body embedded in the prompt
const MaxPromptBodyRunes = 3000

const promptTemplate = `You are analyzing a hotel booking reply email to extract the HOTEL CONFIRMATION NUMBER (HCN).

=== CRITICAL: DO NOT CONFUSE THESE ===
OUR REFERENCE (NOT HCN): %[1]s
SUPPLIER REFERENCE (NOT HCN): %[2]s

These are OUR booking references that WE sent to them. DO NOT extract these as HCN.
The HCN is a NEW number that the HOTEL/SUPPLIER provides in their REPLY.

=== BOOKING DETAILS ===
Guest: %[3]s
Hotel: %[4]s

=== EMAIL TO ANALYZE ===
SUBJECT: %[5]s

BODY:
%[6]s

=== YOUR TASK ===
1. Check if this email contains a HOTEL CONFIRMATION NUMBER (HCN)
2. The HCN must be a NEW number from the hotel/supplier, NOT our reference numbers
3. Categorize the email

=== WHAT IS AN HCN? ===
- A confirmation number PROVIDED BY THE HOTEL in their reply
- Usually labeled as: "Confirmation Number", "Conf#", "HCN", "Hotel Confirmation", "Booking ID", "Reservation ID"
- It's a number/code the HOTEL gives to confirm they received the booking

=== WHAT IS NOT AN HCN? ===
- Our reference number: %[1]s - NEVER extract this as HCN
- Supplier reference: %[2]s - NEVER extract this as HCN
- Any reference WE mentioned in our original request
- File numbers starting with patterns like: OSTR, DIDA, similar prefixes from our system
- Phone numbers, dates, room numbers, rate amounts

=== CATEGORY RULES ===
1. "Received" = Email contains a VALID NEW HCN from the hotel (not our reference)
2. "Critical" = Email says they CANNOT confirm:
   - No room available / Sold out / Fully booked
   - Rate issue / Price not available / Rate mismatch
   - Cannot confirm / Booking rejected / Declined
   - Cancelled / Not possible
   NOTE: If Critical, HCN should be null
3. "Non Critical" = Everything else:
   - Will check and revert
   - Processing your request
   - Acknowledged / Received
   - No clear HCN and no critical issue

Respond with ONLY this JSON:
{
    "hcn_number": "NEW confirmation number from hotel, or null",
    "category": "Received" or "Critical" or "Non Critical",
    "reason": "brief explanation"
}`

// BuildPrompt renders the classification prompt for one reply
func BuildPrompt(subject, body string, b BookingContext) string {
	return fmt.Sprintf(promptTemplate,
		b.OurReference,
		b.SupplierReference,
		b.GuestName,
		b.HotelName,
		subject,
		truncateRunes(body, MaxPromptBodyRunes),
	)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
