package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/archive"
	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/functions"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrUnknownAction is returned for an unsupported run action
var ErrUnknownAction = errors.New("unknown action")

// PendingPreviewLimit is the number of pending bookings in a run summary
const PendingPreviewLimit = 10

// RunAction selects which phases a run executes
type RunAction string

const (
	ActionFullProcess   RunAction = "full_process"
	ActionSendEmails    RunAction = "send_emails"
	ActionCheckInbox    RunAction = "check_inbox"
	ActionSendReminders RunAction = "send_reminders"
)

type phase int

const (
	phaseSend phase = iota
	phaseCheck
	phaseRemind
)

// ParseRunAction validates an action name. Empty means full_process.
func ParseRunAction(s string) (RunAction, error) {
	switch a := RunAction(strings.TrimSpace(s)); a {
	case "":
		return ActionFullProcess, nil
	case ActionFullProcess, ActionSendEmails, ActionCheckInbox, ActionSendReminders:
		return a, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
}

func (a RunAction) phases() []phase {
	switch a {
	case ActionSendEmails:
		return []phase{phaseSend}
	case ActionCheckInbox:
		return []phase{phaseCheck}
	case ActionSendReminders:
		return []phase{phaseRemind}
	default:
		return []phase{phaseSend, phaseCheck, phaseRemind}
	}
}

// ReplyClassifier produces a verdict for a matched reply
type ReplyClassifier interface {
	Classify(ctx context.Context, subject, body string, b functions.BookingContext) functions.Verdict
}

// RunOptions configures a single run
type RunOptions struct {
	Action  RunAction
	Trigger string
	UserID  uint
}

// ReplyCounts counts applied classifications by category
type ReplyCounts struct {
	Received    int `json:"received"`
	Critical    int `json:"critical"`
	NonCritical int `json:"non_critical"`
}

// Total returns the number of classified replies
func (c ReplyCounts) Total() int {
	return c.Received + c.Critical + c.NonCritical
}

// RunSummary is the report returned to the caller of a run
type RunSummary struct {
	RunID            string           `json:"run_id"`
	Action           RunAction        `json:"action"`
	Status           string           `json:"status"`
	InitialSent      int              `json:"initial_sent"`
	RepliesProcessed ReplyCounts      `json:"replies_processed"`
	AmbiguousReplies int              `json:"ambiguous_replies"`
	RemindersSent    int              `json:"reminders_sent"`
	SendFailures     int              `json:"send_failures"`
	FetchError       string           `json:"fetch_error,omitempty"`
	Overview         booking.Overview `json:"overview"`
	Critical         []booking.Record `json:"critical_bookings"`
	Pending          []booking.Record `json:"pending_bookings"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
}

// ProcessService runs the send, check and remind workflow
type ProcessService struct {
	db         *gorm.DB
	store      booking.Store
	mailer     Mailer
	classifier ReplyClassifier
	composer   *booking.Composer
	matcher    *booking.Matcher
	archive    *archive.Store
	actions    *ActionItemService
	logs       *LogService
	gate       *RunGate

	reminderAfter time.Duration
	daysToCheck   int
	sendDelay     time.Duration
	now           func() time.Time
}

// NewProcessService wires the orchestrator
func NewProcessService(db *gorm.DB, cfg *config.Config, store booking.Store, mailer Mailer, classifier ReplyClassifier, replies *archive.Store) *ProcessService {
	return &ProcessService{
		db:            db,
		store:         store,
		mailer:        mailer,
		classifier:    classifier,
		composer:      booking.NewComposer(cfg.SenderName, cfg.CompanyName),
		matcher:       booking.NewMatcher(cfg.MatchStrategy),
		archive:       replies,
		actions:       NewActionItemService(db),
		logs:          NewLogServiceWithLevel(db, cfg.LogLevel),
		gate:          &RunGate{},
		reminderAfter: cfg.ReminderThreshold(),
		daysToCheck:   cfg.DaysToCheck,
		sendDelay:     cfg.SendDelay(),
		now:           time.Now,
	}
}

// Busy reports whether a run is in flight
func (s *ProcessService) Busy() bool {
	return s.gate.Busy()
}

// Store returns the booking store the service runs against
func (s *ProcessService) Store() booking.Store {
	return s.store
}

// runState is the mutable state of one run
type runState struct {
	run      *models.ProcessRun
	records  []booking.Record
	now      time.Time
	summary  *RunSummary
	attempts int
	log      *logrus.Entry
}

// Run executes the selected phases once. A second concurrent call fails with
// ErrProcessBusy. The store is read once and only changed records are written
// back, also when ctx is cancelled part way.
func (s *ProcessService) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	action, err := ParseRunAction(string(opts.Action))
	if err != nil {
		return nil, err
	}

	release, err := s.gate.TryAcquire()
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	st := &runState{
		run: &models.ProcessRun{
			RunID:     uuid.NewString(),
			Trigger:   opts.Trigger,
			Action:    string(action),
			Status:    models.RunStatusRunning,
			StartedAt: now,
		},
		now: now,
	}
	st.log = logger.WithModule("process").WithField("run_id", st.run.RunID)
	st.summary = &RunSummary{RunID: st.run.RunID, Action: action, StartedAt: now}

	if err := s.db.Create(st.run).Error; err != nil {
		st.log.Warnf("Failed to record run: %v", err)
	}
	st.log.Infof("Run started: action=%s trigger=%s", action, opts.Trigger)

	records, err := s.store.ReadAll(ctx)
	if err != nil {
		st.log.Errorf("Failed to read bookings: %v", err)
		s.finish(st, opts.UserID, models.RunStatusFailed, err)
		return nil, err
	}
	st.records = records
	snapshot := booking.Snapshot(records)

	for _, p := range action.phases() {
		if ctx.Err() != nil {
			break
		}
		switch p {
		case phaseSend:
			s.sendInitial(ctx, st)
		case phaseCheck:
			s.checkInbox(ctx, st)
		case phaseRemind:
			s.sendReminders(ctx, st)
		}
	}

	var runErr error
	status := models.RunStatusCompleted
	if changed := booking.Changed(st.records, snapshot); len(changed) > 0 {
		// Mutations made before a cancellation are still persisted.
		if err := s.store.WriteBack(context.WithoutCancel(ctx), changed); err != nil {
			st.log.Errorf("Failed to write back %d bookings: %v", len(changed), err)
			status = models.RunStatusFailed
			runErr = err
		} else {
			st.log.Infof("Wrote back %d bookings", len(changed))
		}
	}
	if runErr == nil && ctx.Err() != nil {
		status = models.RunStatusCancelled
		runErr = ctx.Err()
	}

	st.summary.Overview = booking.Summarize(st.records)
	st.summary.Critical = booking.Critical(st.records)
	st.summary.Pending = booking.Pending(st.records, PendingPreviewLimit)
	s.finish(st, opts.UserID, status, runErr)

	return st.summary, runErr
}

// finish closes out the run record and the audit trail
func (s *ProcessService) finish(st *runState, userID uint, status string, err error) {
	finishedAt := s.now()
	st.summary.Status = status
	st.summary.FinishedAt = finishedAt

	run := st.run
	run.Status = status
	run.FinishedAt = finishedAt
	run.InitialSent = st.summary.InitialSent
	run.RepliesProcessed = st.summary.RepliesProcessed.Total()
	run.Ambiguous = st.summary.AmbiguousReplies
	run.RemindersSent = st.summary.RemindersSent
	run.SendFailures = st.summary.SendFailures
	if err != nil {
		run.Error = err.Error()
	}

	if run.ID != 0 {
		if dbErr := s.db.Save(run).Error; dbErr != nil {
			st.log.Warnf("Failed to update run: %v", dbErr)
		}
	}
	s.logs.LogRunFinished(userID, run)

	st.log.Infof("Run %s: sent=%d replies=%d ambiguous=%d reminders=%d failures=%d",
		status, run.InitialSent, run.RepliesProcessed, run.Ambiguous, run.RemindersSent, run.SendFailures)
}

// pace waits the configured delay before every send but the run's first
func (s *ProcessService) pace(ctx context.Context, st *runState) error {
	defer func() { st.attempts++ }()
	if st.attempts == 0 || s.sendDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(s.sendDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendInitial is the SEND phase
func (s *ProcessService) sendInitial(ctx context.Context, st *runState) {
	for i := range st.records {
		if ctx.Err() != nil {
			return
		}
		rec := &st.records[i]
		if !rec.NeedsInitialEmail() {
			continue
		}
		to, ok := rec.Recipient()
		if !ok {
			st.log.Warnf("Booking %d has no valid agent email, skipped", rec.Serial)
			continue
		}
		if err := s.pace(ctx, st); err != nil {
			return
		}

		subject, body := s.composer.Compose(*rec, false)
		err := s.mailer.Send(ctx, to, subject, body)
		s.logs.LogMailSend(st.run.RunID, bookingID(rec), to, subject, false, err)
		if err != nil {
			st.summary.SendFailures++
			st.log.Errorf("Send failed for booking %d: %v", rec.Serial, err)
			continue
		}

		rec.MarkEmailed(st.now)
		st.summary.InitialSent++
		s.addAction(st, rec, models.ActionEmailSent, "HCN request email sent to "+to, map[string]interface{}{
			"subject": subject,
		})
	}
}

// checkInbox is the CHECK phase
func (s *ProcessService) checkInbox(ctx context.Context, st *runState) {
	since := st.now.AddDate(0, 0, -s.daysToCheck)
	messages, err := s.mailer.FetchSince(ctx, since)
	s.logs.LogMailFetch(st.run.RunID, len(messages), err)
	if err != nil {
		st.summary.FetchError = err.Error()
		st.log.Errorf("Inbox fetch failed, skipping reply check: %v", err)
		return
	}

	classified := make(map[int]bool)
	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		if strings.TrimSpace(msg.Body) == "" {
			continue
		}
		if s.alreadyProcessed(msg.MessageID) {
			continue
		}

		match := s.matcher.Resolve(st.records, msg.Subject, msg.Body)
		switch match.Outcome {
		case booking.NoMatch:
			continue
		case booking.Ambiguous:
			st.summary.AmbiguousReplies++
			s.recordAmbiguous(st, msg, match)
			continue
		}

		idx := booking.Find(st.records, match.Serial)
		if idx < 0 {
			continue
		}
		rec := &st.records[idx]
		if classified[rec.Serial] || rec.Issue.IsTerminal() || rec.HasHCN() {
			continue
		}

		verdict := s.classifier.Classify(ctx, msg.Subject, msg.Body, functions.BookingContext{
			GuestName:         rec.GuestName,
			HotelName:         rec.HotelName,
			OurReference:      rec.OurReference,
			SupplierReference: rec.SupplierReference,
		})
		applyVerdict(rec, verdict)
		classified[rec.Serial] = true

		switch verdict.Category {
		case functions.CategoryReceived:
			st.summary.RepliesProcessed.Received++
		case functions.CategoryCritical:
			st.summary.RepliesProcessed.Critical++
		default:
			st.summary.RepliesProcessed.NonCritical++
		}

		s.recordVerdict(st, rec, msg, match, verdict)
	}
}

// applyVerdict maps a verdict onto the booking's Issue and HCN
func applyVerdict(rec *booking.Record, v functions.Verdict) {
	switch v.Category {
	case functions.CategoryReceived:
		rec.Issue = booking.IssueReceived
		rec.SupplierHCN = v.HCN
	case functions.CategoryCritical:
		rec.Issue = booking.IssueCritical
		rec.SupplierHCN = ""
	default:
		rec.Issue = booking.IssueNonCritical
	}
}

// sendReminders is the REMIND phase
func (s *ProcessService) sendReminders(ctx context.Context, st *runState) {
	for i := range st.records {
		if ctx.Err() != nil {
			return
		}
		rec := &st.records[i]
		if !booking.IsReminderDue(*rec, st.now, s.reminderAfter) {
			continue
		}
		to, ok := rec.Recipient()
		if !ok {
			st.log.Warnf("Booking %d is due a reminder but has no valid agent email", rec.Serial)
			continue
		}
		if err := s.pace(ctx, st); err != nil {
			return
		}

		subject, body := s.composer.Compose(*rec, true)
		err := s.mailer.Send(ctx, to, subject, body)
		s.logs.LogMailSend(st.run.RunID, bookingID(rec), to, subject, true, err)
		if err != nil {
			st.summary.SendFailures++
			st.log.Errorf("Reminder failed for booking %d: %v", rec.Serial, err)
			continue
		}

		rec.MarkReminded(st.now)
		st.summary.RemindersSent++
		s.addAction(st, rec, models.ActionReminderSent, "HCN reminder sent to "+to, map[string]interface{}{
			"subject":       subject,
			"email_sent_at": rec.EmailSentAt,
		})
	}
}

func (s *ProcessService) alreadyProcessed(messageID string) bool {
	var count int64
	if err := s.db.Model(&models.ReplyResult{}).Where("message_id = ?", messageID).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// recordVerdict archives the reply and records the result in every trail
func (s *ProcessService) recordVerdict(st *runState, rec *booking.Record, msg InboundMessage, match booking.MatchResult, v functions.Verdict) {
	rawPath := ""
	if s.archive != nil {
		path, err := s.archive.SaveReply(rec.Serial, msg.MessageID, msg.Raw)
		if err != nil {
			st.log.Warnf("Failed to archive reply %s: %v", msg.MessageID, err)
		} else {
			rawPath = path
		}
		if _, err := s.archive.SaveVerdict(rec.Serial, msg.MessageID, v); err != nil {
			st.log.Warnf("Failed to archive verdict for %s: %v", msg.MessageID, err)
		}
	}

	result := &models.ReplyResult{
		RunID:         st.run.RunID,
		MessageID:     msg.MessageID,
		BookingSerial: rec.Serial,
		Subject:       msg.Subject,
		FromAddr:      msg.From,
		Category:      string(v.Category),
		HCN:           v.HCN,
		Reason:        v.Reason,
		RawFilePath:   rawPath,
		ProcessedBy:   v.ProcessedBy,
		ProcessedAt:   st.now,
	}
	if err := s.db.Create(result).Error; err != nil {
		st.log.Warnf("Failed to record reply %s: %v", msg.MessageID, err)
	}

	s.logs.LogReplyClassified(ClassificationDetails{
		RunID:       st.run.RunID,
		BookingID:   bookingID(rec),
		MessageID:   msg.MessageID,
		Category:    string(v.Category),
		HCN:         v.HCN,
		ProcessedBy: v.ProcessedBy,
		Rule:        match.Rule,
	})

	actionType := models.ActionIssueMarked
	description := "Reply classified as " + string(v.Category)
	if v.Category == functions.CategoryReceived {
		actionType = models.ActionHCNReceived
		description = "HCN received: " + v.HCN
	}
	s.addAction(st, rec, actionType, description, map[string]interface{}{
		"message_id":   msg.MessageID,
		"category":     string(v.Category),
		"reason":       v.Reason,
		"processed_by": v.ProcessedBy,
		"match_rule":   match.Rule,
	})
}

// recordAmbiguous stores a reply that could not be tied to a single booking
func (s *ProcessService) recordAmbiguous(st *runState, msg InboundMessage, match booking.MatchResult) {
	serials := make([]string, 0, len(match.Candidates))
	for _, c := range match.Candidates {
		serials = append(serials, strconv.Itoa(c.Serial))
	}
	st.log.Warnf("Reply %s matches bookings %s equally well, left for review", msg.MessageID, strings.Join(serials, ","))

	result := &models.ReplyResult{
		RunID:       st.run.RunID,
		MessageID:   msg.MessageID,
		Subject:     msg.Subject,
		FromAddr:    msg.From,
		Category:    models.CategoryAmbiguous,
		Reason:      "Matched several bookings with equal specificity",
		Candidates:  strings.Join(serials, ","),
		ProcessedAt: st.now,
	}
	if err := s.db.Create(result).Error; err != nil {
		st.log.Warnf("Failed to record ambiguous reply %s: %v", msg.MessageID, err)
	}

	s.logs.LogReplyAmbiguous(ClassificationDetails{
		RunID:      st.run.RunID,
		MessageID:  msg.MessageID,
		Candidates: serials,
	})
}

func (s *ProcessService) addAction(st *runState, rec *booking.Record, actionType models.ActionType, description string, metadata map[string]interface{}) {
	metadata["run_id"] = st.run.RunID
	if _, err := s.actions.Add(bookingID(rec), actionType, description, models.PerformedBySystem, metadata); err != nil {
		st.log.Warnf("Failed to add action item for booking %d: %v", rec.Serial, err)
	}
}

// RecentRuns returns the newest process runs
func (s *ProcessService) RecentRuns(limit int) ([]models.ProcessRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.ProcessRun
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Replies returns recorded replies, newest first, optionally by category
func (s *ProcessService) Replies(category string, limit int) ([]models.ReplyResult, error) {
	if limit <= 0 {
		limit = 50
	}
	db := s.db.Model(&models.ReplyResult{})
	if category != "" {
		db = db.Where("category = ?", category)
	}
	var results []models.ReplyResult
	if err := db.Order("processed_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func bookingID(rec *booking.Record) string {
	return strconv.Itoa(rec.Serial)
}
