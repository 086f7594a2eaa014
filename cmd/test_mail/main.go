// Command test_mail checks the configured Gmail credentials and lists the
// replies a run would look at.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/functions/local"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
)

func main() {
	days := flag.Int("days", 0, "look back this many days (default: DAYS_TO_CHECK)")
	limit := flag.Int("limit", 10, "messages to print")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.WithModule("test_mail")

	if *days <= 0 {
		*days = cfg.DaysToCheck
	}

	mail := services.NewMailService(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	imapResult := mail.TestIMAP()
	smtpResult := mail.TestSMTP(ctx)
	log.Infof("IMAP %s:%d: %s", cfg.IMAPHost, cfg.IMAPPort, imapResult.Message)
	log.Infof("SMTP %s:%d: %s", cfg.SMTPHost, cfg.SMTPPort, smtpResult.Message)
	if !imapResult.Success {
		os.Exit(1)
	}

	since := time.Now().AddDate(0, 0, -*days)
	messages, err := mail.FetchSince(ctx, since)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}
	log.Infof("%d message(s) since %s", len(messages), since.Format(booking.TimeLayout))

	for i, msg := range messages {
		if i >= *limit {
			break
		}
		fmt.Printf("[%d] %s\n    From: %s\n    Subject: %s\n    %s\n",
			msg.UID, msg.Date.Format(booking.TimeLayout), msg.From, msg.Subject, local.Snippet(msg.Body, 120))
	}
}
