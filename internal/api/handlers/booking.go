package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
)

// BookingSummary is the compact row of GET /api/bookings/summary
type BookingSummary struct {
	BookingID    int           `json:"booking_id"`
	GuestName    string        `json:"guest_name"`
	CheckIn      string        `json:"check_in"`
	CheckOut     string        `json:"check_out"`
	HotelName    string        `json:"hotel_name"`
	City         string        `json:"city"`
	Status       string        `json:"status"`
	Issue        booking.Issue `json:"issue"`
	HasHCN       bool          `json:"has_hcn"`
	EmailSent    bool          `json:"email_sent"`
	ReminderSent bool          `json:"reminder_sent"`
	ReminderDue  bool          `json:"reminder_due"`
}

// BookingHandler serves read-only views over the booking store
type BookingHandler struct {
	store         booking.Store
	process       *services.ProcessService
	actions       *services.ActionItemService
	reminderAfter time.Duration
	now           func() time.Time
}

// NewBookingHandler creates a new BookingHandler instance
func NewBookingHandler(store booking.Store, process *services.ProcessService, actions *services.ActionItemService, reminderAfter time.Duration) *BookingHandler {
	return &BookingHandler{
		store:         store,
		process:       process,
		actions:       actions,
		reminderAfter: reminderAfter,
		now:           time.Now,
	}
}

// readAll loads the store or writes a 503
func (h *BookingHandler) readAll(c *gin.Context) ([]booking.Record, bool) {
	records, err := h.store.ReadAll(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, CodeStoreUnavailable, err.Error())
		return nil, false
	}
	return records, true
}

// Status returns the overview counts and the process state
// GET /api/status
func (h *BookingHandler) Status(c *gin.Context) {
	records, ok := h.readAll(c)
	if !ok {
		return
	}

	data := gin.H{
		"overview":        booking.Summarize(records),
		"process_running": h.process != nil && h.process.Busy(),
	}
	if h.process != nil {
		if runs, err := h.process.RecentRuns(1); err == nil && len(runs) > 0 {
			data["last_run"] = runs[0]
		}
	}
	respondOK(c, data)
}

// List returns every accepted booking
// GET /api/bookings
func (h *BookingHandler) List(c *gin.Context) {
	records, ok := h.readAll(c)
	if !ok {
		return
	}

	accepted := booking.Accepted(records)
	if issue := c.Query("issue"); issue != "" {
		want := booking.ParseIssue(issue)
		if issue == "pending" {
			want = booking.IssuePending
		}
		filtered := []booking.Record{}
		for _, rec := range accepted {
			if rec.Issue == want {
				filtered = append(filtered, rec)
			}
		}
		accepted = filtered
	}

	respondOK(c, gin.H{"total": len(accepted), "bookings": accepted})
}

// Pending returns accepted bookings without a classified reply
// GET /api/bookings/pending
func (h *BookingHandler) Pending(c *gin.Context) {
	records, ok := h.readAll(c)
	if !ok {
		return
	}

	pending := booking.Pending(records, queryLimit(c, 0, 1000))
	respondOK(c, gin.H{"total": len(pending), "bookings": pending})
}

// Critical returns accepted bookings whose reply reported a problem
// GET /api/bookings/critical
func (h *BookingHandler) Critical(c *gin.Context) {
	records, ok := h.readAll(c)
	if !ok {
		return
	}

	critical := booking.Critical(records)
	respondOK(c, gin.H{"total": len(critical), "bookings": critical})
}

// Summary returns a compact list of accepted bookings
// GET /api/bookings/summary
func (h *BookingHandler) Summary(c *gin.Context) {
	records, ok := h.readAll(c)
	if !ok {
		return
	}

	now := h.now()
	rows := []BookingSummary{}
	for _, rec := range booking.Accepted(records) {
		rows = append(rows, BookingSummary{
			BookingID:    rec.Serial,
			GuestName:    rec.GuestName,
			CheckIn:      rec.FromDate,
			CheckOut:     rec.ToDate,
			HotelName:    rec.HotelName,
			City:         rec.CityName,
			Status:       rec.Status,
			Issue:        rec.Issue,
			HasHCN:       rec.HasHCN(),
			EmailSent:    rec.WasEmailed(),
			ReminderSent: rec.WasReminded(),
			ReminderDue:  booking.IsReminderDue(rec, now, h.reminderAfter),
		})
	}
	respondOK(c, gin.H{"total": len(rows), "bookings": rows})
}

// Get returns one booking with its action items
// GET /api/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	serial, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Booking id must be a number")
		return
	}

	records, ok := h.readAll(c)
	if !ok {
		return
	}

	idx := booking.Find(records, serial)
	if idx < 0 {
		respondError(c, http.StatusNotFound, CodeNotFound, booking.ErrRecordNotFound.Error())
		return
	}
	rec := records[idx]

	items := []models.ActionItem{}
	if h.actions != nil {
		if found, err := h.actions.ByBooking(strconv.Itoa(serial)); err == nil {
			items = found
		}
	}

	respondOK(c, gin.H{
		"booking":      rec,
		"accepted":     rec.IsAccepted(),
		"reminder_due": booking.IsReminderDue(rec, h.now(), h.reminderAfter),
		"action_items": items,
	})
}
