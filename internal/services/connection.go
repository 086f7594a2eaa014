package services

import (
	"context"
	"fmt"
)

// ConnectionTestResult represents the result of a connection test
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestIMAP logs in to the IMAP server and selects the configured mailbox
func (s *MailService) TestIMAP() ConnectionTestResult {
	if !s.configured() {
		return ConnectionTestResult{Success: false, Message: ErrNotConfigured.Error()}
	}

	c, err := s.connectIMAP()
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}
	defer c.Logout()

	mbox, err := c.Select(s.mailbox, true)
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to select %s: %v", s.mailbox, err),
		}
	}

	return ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("IMAP login successful, %s holds %d messages", s.mailbox, mbox.Messages),
	}
}

// TestSMTP connects and authenticates without sending anything
func (s *MailService) TestSMTP(ctx context.Context) ConnectionTestResult {
	if !s.configured() {
		return ConnectionTestResult{Success: false, Message: ErrNotConfigured.Error()}
	}

	c, err := s.dialSMTP(ctx)
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}
	defer c.Close()

	if err := s.authenticate(c); err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("SMTP authentication failed: %v", err),
		}
	}

	c.Quit()
	return ConnectionTestResult{Success: true, Message: "SMTP connection and authentication successful"}
}
