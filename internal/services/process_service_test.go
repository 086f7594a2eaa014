package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/archive"
	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/functions"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/gorm"
)

// memStore is an in-memory booking.Store
type memStore struct {
	mu      sync.Mutex
	records []booking.Record
	readErr error
	writes  [][]booking.Record
}

func (m *memStore) ReadAll(ctx context.Context) ([]booking.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]booking.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) WriteBack(ctx context.Context, changed []booking.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]booking.Record, len(changed))
	copy(batch, changed)
	m.writes = append(m.writes, batch)
	for _, rec := range changed {
		if i := booking.Find(m.records, rec.Serial); i >= 0 {
			m.records[i] = rec
		}
	}
	return nil
}

// get returns a copy of the stored record
func (m *memStore) get(serial int) *booking.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[booking.Find(m.records, serial)]
	return &rec
}

type sentMail struct {
	to, subject, body string
}

// fakeMailer records sends and serves a canned inbox
type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failFor  map[string]bool
	inbox    []InboundMessage
	fetchErr error
	since    time.Time
	onSend   func(n int)
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSend != nil {
		f.onSend(len(f.sent))
	}
	if f.failFor[to] {
		return fmt.Errorf("%w: mailbox full", ErrEmailSendFailed)
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) FetchSince(ctx context.Context, since time.Time) ([]InboundMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	return f.inbox, f.fetchErr
}

// cannedOracle answers every prompt with the same text
type cannedOracle struct {
	reply string
	calls int
}

func (c *cannedOracle) Complete(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.reply, nil
}

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

func testRecord(serial int, ref, guest, email string) booking.Record {
	return booking.Record{
		Row:          serial + 2,
		Serial:       serial,
		Status:       "Confirmed",
		GuestName:    guest,
		HotelName:    "Grand Palace",
		CityName:     "Dubai",
		CountryName:  "UAE",
		FromDate:     "2025-03-20",
		ToDate:       "2025-03-23",
		OurReference: ref,
		AgentEmail:   email,
	}
}

func newTestProcessService(t *testing.T, db *gorm.DB, store booking.Store, mailer Mailer, oracle functions.Oracle) *ProcessService {
	t.Helper()
	logger.Silence()

	cfg := config.Default()
	svc := NewProcessService(db, cfg, store, mailer,
		functions.NewClassifier(functions.ClassifierModeAI, oracle),
		archive.NewStore(t.TempDir()))
	svc.now = func() time.Time { return testNow }
	svc.sendDelay = 0
	return svc
}

func TestProcess_SendPhaseContinuesAfterFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{records: []booking.Record{
		testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test"),
		testRecord(2, "OSTR-2002", "MS. Priya Nair", "broken@agent.test"),
		testRecord(3, "OSTR-3003", "MR. Rahul Verma", "c@agent.test"),
		testRecord(4, "OSTR-4004", "MR. No Email", "not-an-address"),
	}}
	cancelled := testRecord(5, "OSTR-5005", "MR. Karan Shah", "e@agent.test")
	cancelled.Status = "Cancelled"
	withHCN := testRecord(6, "OSTR-6006", "MR. Dev Patel", "f@agent.test")
	withHCN.SupplierHCN = "HX-1"
	store.records = append(store.records, cancelled, withHCN)

	mailer := &fakeMailer{failFor: map[string]bool{"broken@agent.test": true}}
	svc := newTestProcessService(t, db, store, mailer, nil)

	summary, err := svc.Run(context.Background(), RunOptions{Action: ActionSendEmails, Trigger: models.TriggerCLI})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.InitialSent != 2 || summary.SendFailures != 1 {
		t.Fatalf("sent=%d failures=%d", summary.InitialSent, summary.SendFailures)
	}
	if len(mailer.sent) != 2 || mailer.sent[1].to != "c@agent.test" {
		t.Fatalf("unexpected sends %+v", mailer.sent)
	}
	if !strings.HasPrefix(mailer.sent[0].subject, "HCN Request - MR. Arjun Mehta") {
		t.Errorf("subject = %q", mailer.sent[0].subject)
	}

	if rec := store.get(1); !rec.WasEmailed() || rec.EmailSentAt != testNow.Format(booking.TimeLayout) {
		t.Errorf("record 1 not marked: %+v", rec)
	}
	if rec := store.get(2); rec.WasEmailed() {
		t.Error("failed send must leave record unchanged")
	}
	if len(store.writes) != 1 || len(store.writes[0]) != 2 {
		t.Fatalf("expected one write-back of 2 records, got %+v", store.writes)
	}

	var items []models.ActionItem
	db.Where("action_type = ?", string(models.ActionEmailSent)).Find(&items)
	if len(items) != 2 {
		t.Errorf("expected 2 email_sent action items, got %d", len(items))
	}

	var run models.ProcessRun
	if err := db.Where("run_id = ?", summary.RunID).First(&run).Error; err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Status != models.RunStatusCompleted || run.InitialSent != 2 || run.SendFailures != 1 {
		t.Errorf("unexpected run row %+v", run)
	}
}

func TestProcess_CheckPhaseFirstClassificationWins(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	r1 := testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test")
	r1.MarkEmailed(testNow.Add(-time.Hour))
	store := &memStore{records: []booking.Record{r1}}

	mailer := &fakeMailer{inbox: []InboundMessage{
		{MessageID: "<m1@hotel.test>", Subject: "Re: HCN Request - Ref: OSTR-1001", Body: "HCN is 558812", Raw: []byte("raw1")},
		{MessageID: "<m2@hotel.test>", Subject: "Re: HCN Request - Ref: OSTR-1001", Body: "Sorry, sold out", Raw: []byte("raw2")},
		{MessageID: "<m3@hotel.test>", Subject: "Re: OSTR-1001", Body: "   "},
	}}
	oracle := &cannedOracle{reply: `{"hcn_number":"558812","category":"Received","reason":"given"}`}
	svc := newTestProcessService(t, db, store, mailer, oracle)

	summary, err := svc.Run(context.Background(), RunOptions{Action: ActionCheckInbox})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if oracle.calls != 1 {
		t.Errorf("expected one classification, got %d", oracle.calls)
	}
	if summary.RepliesProcessed.Received != 1 || summary.RepliesProcessed.Total() != 1 {
		t.Errorf("replies = %+v", summary.RepliesProcessed)
	}
	if !mailer.since.Equal(testNow.AddDate(0, 0, -config.DefaultDaysToCheck)) {
		t.Errorf("fetch since = %v", mailer.since)
	}

	rec := store.get(1)
	if rec.Issue != booking.IssueReceived || rec.SupplierHCN != "558812" {
		t.Fatalf("record not updated: %+v", rec)
	}

	var result models.ReplyResult
	if err := db.Where("message_id = ?", "<m1@hotel.test>").First(&result).Error; err != nil {
		t.Fatalf("reply result missing: %v", err)
	}
	if result.RawFilePath == "" || result.BookingSerial != 1 {
		t.Errorf("unexpected reply result %+v", result)
	}

	// a second run must not re-classify the same message
	svc2 := newTestProcessService(t, db, store, mailer, oracle)
	if _, err := svc2.Run(context.Background(), RunOptions{Action: ActionCheckInbox}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if oracle.calls != 1 {
		t.Errorf("message re-classified, calls=%d", oracle.calls)
	}
}

func TestProcess_AmbiguousReplyIsRecorded(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{records: []booking.Record{
		testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test"),
		testRecord(2, "OSTR-2002", "MRS. Arjun Mehta", "b@agent.test"),
	}}
	mailer := &fakeMailer{inbox: []InboundMessage{
		{MessageID: "<amb@hotel.test>", Subject: "Guest Arjun Mehta", Body: "Confirmed, HCN 7781"},
	}}
	oracle := &cannedOracle{reply: `{"hcn_number":"7781","category":"Received","reason":""}`}
	svc := newTestProcessService(t, db, store, mailer, oracle)

	summary, err := svc.Run(context.Background(), RunOptions{Action: ActionCheckInbox})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AmbiguousReplies != 1 || oracle.calls != 0 {
		t.Fatalf("ambiguous=%d calls=%d", summary.AmbiguousReplies, oracle.calls)
	}
	if len(store.writes) != 0 {
		t.Error("ambiguous reply must not touch bookings")
	}

	var result models.ReplyResult
	if err := db.Where("category = ?", models.CategoryAmbiguous).First(&result).Error; err != nil {
		t.Fatalf("ambiguous reply not recorded: %v", err)
	}
	if result.Candidates != "1,2" {
		t.Errorf("candidates = %q", result.Candidates)
	}
}

func TestProcess_FetchFailureSkipsCheckOnly(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{records: []booking.Record{
		testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test"),
	}}
	mailer := &fakeMailer{fetchErr: ErrIMAPConnectionFailed}
	svc := newTestProcessService(t, db, store, mailer, nil)

	summary, err := svc.Run(context.Background(), RunOptions{Action: ActionFullProcess})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.InitialSent != 1 || summary.FetchError == "" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestProcess_ReminderPhase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	due := testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test")
	due.MarkEmailed(testNow.Add(-3 * time.Hour))
	due.Issue = booking.IssueNonCritical

	recent := testRecord(2, "OSTR-2002", "MS. Priya Nair", "b@agent.test")
	recent.MarkEmailed(testNow.Add(-time.Hour))

	critical := testRecord(3, "OSTR-3003", "MR. Rahul Verma", "c@agent.test")
	critical.MarkEmailed(testNow.Add(-48 * time.Hour))
	critical.Issue = booking.IssueCritical

	reminded := testRecord(4, "OSTR-4004", "MR. Karan Shah", "d@agent.test")
	reminded.MarkEmailed(testNow.Add(-48 * time.Hour))
	reminded.MarkReminded(testNow.Add(-24 * time.Hour))

	store := &memStore{records: []booking.Record{due, recent, critical, reminded}}
	mailer := &fakeMailer{}
	svc := newTestProcessService(t, db, store, mailer, nil)

	summary, err := svc.Run(context.Background(), RunOptions{Action: ActionSendReminders})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RemindersSent != 1 || len(mailer.sent) != 1 {
		t.Fatalf("reminders=%d sends=%d", summary.RemindersSent, len(mailer.sent))
	}
	if !strings.HasPrefix(mailer.sent[0].subject, "REMINDER: ") {
		t.Errorf("subject = %q", mailer.sent[0].subject)
	}
	if !strings.Contains(mailer.sent[0].body, "We have not received the HCN") {
		t.Error("reminder body lacks notice")
	}
	if rec := store.get(1); !rec.WasReminded() || rec.ReminderSentAt != testNow.Format(booking.TimeLayout) {
		t.Errorf("record not marked reminded: %+v", rec)
	}
	if summary.Overview.Critical != 1 || len(summary.Critical) != 1 {
		t.Errorf("overview = %+v", summary.Overview)
	}
}

func TestProcess_BusyUnknownAndReadFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{}
	svc := newTestProcessService(t, db, store, &fakeMailer{}, nil)

	release, _ := svc.gate.TryAcquire()
	if _, err := svc.Run(context.Background(), RunOptions{}); !errors.Is(err, ErrProcessBusy) {
		t.Errorf("expected ErrProcessBusy, got %v", err)
	}
	release()

	if _, err := svc.Run(context.Background(), RunOptions{Action: "purge_all"}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}

	store.readErr = booking.ErrStoreUnavailable
	if _, err := svc.Run(context.Background(), RunOptions{}); !errors.Is(err, booking.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if svc.Busy() {
		t.Error("gate left busy after failed run")
	}

	var run models.ProcessRun
	db.Order("id DESC").First(&run)
	if run.Status != models.RunStatusFailed {
		t.Errorf("failed run status = %s", run.Status)
	}
}

func TestProcess_CancelledRunWritesBackProgress(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{records: []booking.Record{
		testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test"),
		testRecord(2, "OSTR-2002", "MS. Priya Nair", "b@agent.test"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	mailer := &fakeMailer{onSend: func(n int) {
		if n == 0 {
			cancel()
		}
	}}
	svc := newTestProcessService(t, db, store, mailer, nil)

	summary, err := svc.Run(ctx, RunOptions{Action: ActionSendEmails})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary == nil || summary.Status != models.RunStatusCancelled || summary.InitialSent != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !store.get(1).WasEmailed() || store.get(2).WasEmailed() {
		t.Error("expected only the first booking to be persisted as emailed")
	}
}

// Feature: hcn-mail-workflow, Property 10: Record invariants after a run
// For any oracle answer, every booking the run classified satisfies
// Received => HCN present and Critical => HCN empty.
// Validates: process orchestrator CHECK phase

func TestProperty_RunPreservesIssueInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("classified_records_respect_invariants", prop.ForAll(
		func(hcn, category string) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			rec := testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test")
			rec.SupplierReference = "SR-77"
			rec.MarkEmailed(testNow.Add(-time.Hour))
			store := &memStore{records: []booking.Record{rec}}
			mailer := &fakeMailer{inbox: []InboundMessage{
				{MessageID: "<p@hotel.test>", Subject: "Re: Ref OSTR-1001", Body: "reply"},
			}}
			oracle := &cannedOracle{reply: fmt.Sprintf(`{"hcn_number":%q,"category":%q,"reason":"r"}`, hcn, category)}
			svc := newTestProcessService(t, db, store, mailer, oracle)

			if _, err := svc.Run(context.Background(), RunOptions{Action: ActionCheckInbox}); err != nil {
				return false
			}

			got := store.get(1)
			switch got.Issue {
			case booking.IssueReceived:
				return got.HasHCN() &&
					!strings.Contains(strings.ToLower(got.SupplierHCN), "ostr-1001") &&
					!strings.Contains("ostr-1001", strings.ToLower(got.SupplierHCN))
			case booking.IssueCritical:
				return !got.HasHCN()
			case booking.IssueNonCritical:
				return !got.HasHCN()
			}
			return false
		},
		gen.OneConstOf("558812", "OSTR-1001", "1001", "SR-77", "BKG-9", "null", "", "HX 22"),
		gen.OneConstOf("Received", "Critical", "Non Critical", "garbage"),
	))

	properties.TestingRun(t)
}
