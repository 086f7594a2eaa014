package services

import (
	"context"
	"testing"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
)

// stallingMailer blocks every send until its context is done
type stallingMailer struct {
	started chan struct{}
}

func (m *stallingMailer) Send(ctx context.Context, to, subject, body string) error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *stallingMailer) FetchSince(ctx context.Context, since time.Time) ([]InboundMessage, error) {
	return nil, nil
}

func TestProcessScheduler_StopCancelsActiveRun(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := &memStore{records: []booking.Record{
		testRecord(1, "OSTR-1001", "MR. Arjun Mehta", "a@agent.test"),
	}}
	mailer := &stallingMailer{started: make(chan struct{}, 1)}
	svc := newTestProcessService(t, db, store, mailer, nil)

	scheduler := NewProcessScheduler(svc, "@every 1s")
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-mailer.started:
	case <-time.After(5 * time.Second):
		scheduler.Stop()
		t.Fatal("scheduled run never reached the mailer")
	}

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on the active run")
	}

	if svc.Busy() {
		t.Error("run still active after Stop")
	}
	var run models.ProcessRun
	if err := db.Where(&models.ProcessRun{Trigger: models.TriggerSchedule}).First(&run).Error; err != nil {
		t.Fatalf("scheduled run not recorded: %v", err)
	}
	if run.Status != models.RunStatusCancelled {
		t.Errorf("run status = %s", run.Status)
	}
}

func TestProcessScheduler_InvalidSpec(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := newTestProcessService(t, db, &memStore{}, &fakeMailer{}, nil)
	if err := NewProcessScheduler(svc, "every now and then").Start(); err == nil {
		t.Error("expected an error for an invalid cron spec")
	}
}
