package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/config"
)

func TestBuildMessage_ParsesBack(t *testing.T) {
	date := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	body := "Dear Partner,\n\nGuest Name        : MR. Arjun Mehta\nCheck-in          : 14-Mar-2025\n"

	raw, err := buildMessage("Reservations Team", "ops@example.com", "agent@hotel.test", "HCN Request - Ref: OSTR-4471 | Grand Palace", body, date)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if !strings.Contains(string(raw), "Content-Type: text/plain; charset=utf-8") {
		t.Errorf("missing content type in:\n%s", raw)
	}

	in, err := parseInbound(raw)
	if err != nil {
		t.Fatalf("parseInbound: %v", err)
	}
	if in.Subject != "HCN Request - Ref: OSTR-4471 | Grand Palace" {
		t.Errorf("subject = %q", in.Subject)
	}
	if in.From != "ops@example.com" {
		t.Errorf("from = %q", in.From)
	}
	if !strings.HasPrefix(in.MessageID, "<") || !strings.HasSuffix(in.MessageID, ">") {
		t.Errorf("message id = %q", in.MessageID)
	}
	if strings.ReplaceAll(in.Body, "\r\n", "\n") != body {
		t.Errorf("body = %q", in.Body)
	}
	if !in.Date.Equal(date) {
		t.Errorf("date = %v", in.Date)
	}
}

func TestParseInbound_FirstPlainPart(t *testing.T) {
	raw := strings.Join([]string{
		"From: Front Office <fo@hotel.test>",
		"To: ops@example.com",
		"Subject: =?UTF-8?Q?Re:_HCN_Request_=E2=80=93_OSTR-4471?=",
		"Message-ID: <abc123@hotel.test>",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=XYZ",
		"",
		"--XYZ",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>HTML version</p>",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Confirmation number 558812",
		"--XYZ--",
		"",
	}, "\r\n")

	in, err := parseInbound([]byte(raw))
	if err != nil {
		t.Fatalf("parseInbound: %v", err)
	}
	if in.Subject != "Re: HCN Request – OSTR-4471" {
		t.Errorf("subject = %q", in.Subject)
	}
	if in.MessageID != "<abc123@hotel.test>" {
		t.Errorf("message id = %q", in.MessageID)
	}
	if strings.TrimSpace(in.Body) != "Confirmation number 558812" {
		t.Errorf("body = %q", in.Body)
	}
	if in.From != "fo@hotel.test" {
		t.Errorf("from = %q", in.From)
	}
}

func TestLoginAuth_Prompts(t *testing.T) {
	auth := newLoginAuth("user@example.com", "app-pass")

	cases := map[string]string{
		"Username:":    "user@example.com",
		"VXNlcm5hbWU6": "user@example.com",
		"Password:":    "app-pass",
		"UGFzc3dvcmQ6": "app-pass",
	}
	for prompt, want := range cases {
		got, err := auth.Next([]byte(prompt), true)
		if err != nil || string(got) != want {
			t.Errorf("Next(%q) = %q, %v", prompt, got, err)
		}
	}
	if _, err := auth.Next([]byte("Token:"), true); err == nil {
		t.Error("expected error for unknown challenge")
	}
}

func TestMailService_NotConfigured(t *testing.T) {
	svc := NewMailService(config.Default())

	if err := svc.Send(context.Background(), "a@b.c", "s", "b"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Send: expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.FetchSince(context.Background(), time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("FetchSince: expected ErrNotConfigured, got %v", err)
	}
	if res := svc.TestIMAP(); res.Success {
		t.Error("TestIMAP should fail without credentials")
	}
}
