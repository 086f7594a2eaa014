package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	id "github.com/emersion/go-imap-id"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

var (
	// ErrIMAPConnectionFailed indicates IMAP connection failed
	ErrIMAPConnectionFailed = errors.New("IMAP connection failed")
	// ErrSMTPConnectionFailed indicates SMTP connection failed
	ErrSMTPConnectionFailed = errors.New("SMTP connection failed")
	// ErrEmailSendFailed indicates email sending failed
	ErrEmailSendFailed = errors.New("email send failed")
	// ErrNotConfigured indicates the mailbox credentials are missing
	ErrNotConfigured = errors.New("mailbox not configured")
)

const (
	connectionTimeout  = 10 * time.Second
	imapCommandTimeout = 2 * time.Minute
	fetchBatchSize     = 10
	implicitTLSPort    = 465
)

// loginAuth implements smtp.Auth for LOGIN authentication
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	prompt := strings.ToLower(strings.TrimSuffix(string(fromServer), ":"))
	if decoded, err := base64.StdEncoding.DecodeString(string(fromServer)); err == nil {
		prompt = strings.ToLower(strings.TrimSuffix(string(decoded), ":"))
	}
	switch prompt {
	case "username":
		return []byte(a.username), nil
	case "password":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
}

// InboundMessage is a reply fetched from the mailbox
type InboundMessage struct {
	UID       uint32
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	Body      string
	Raw       []byte
}

// Mailer sends correspondence and reads replies
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
	FetchSince(ctx context.Context, since time.Time) ([]InboundMessage, error)
}

// MailService talks to the Gmail SMTP and IMAP endpoints with an app password
type MailService struct {
	address    string
	password   string
	senderName string
	smtpHost   string
	smtpPort   int
	imapHost   string
	imapPort   int
	mailbox    string
}

// NewMailService creates a MailService from the configuration
func NewMailService(cfg *config.Config) *MailService {
	return &MailService{
		address:    cfg.GmailAddress,
		password:   cfg.GmailAppPassword,
		senderName: cfg.SenderName,
		smtpHost:   cfg.SMTPHost,
		smtpPort:   cfg.SMTPPort,
		imapHost:   cfg.IMAPHost,
		imapPort:   cfg.IMAPPort,
		mailbox:    cfg.Mailbox,
	}
}

func (s *MailService) configured() bool {
	return s.address != "" && s.password != ""
}

// Send delivers a UTF-8 plain text message to a single recipient
func (s *MailService) Send(ctx context.Context, to, subject, body string) error {
	if !s.configured() {
		return ErrNotConfigured
	}

	content, err := buildMessage(s.senderName, s.address, to, subject, body, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}

	c, err := s.dialSMTP(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := s.authenticate(c); err != nil {
		return fmt.Errorf("%w: %v", ErrSMTPConnectionFailed, err)
	}

	if err := c.Mail(s.address); err != nil {
		return fmt.Errorf("%w: MAIL FROM failed: %v", ErrEmailSendFailed, err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("%w: RCPT TO failed for %s: %v", ErrEmailSendFailed, to, err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA failed: %v", ErrEmailSendFailed, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("%w: write failed: %v", ErrEmailSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close failed: %v", ErrEmailSendFailed, err)
	}

	// The message is accepted once DATA closes; QUIT errors are irrelevant.
	c.Quit()
	return nil
}

// dialSMTP connects with implicit TLS on 465 and STARTTLS otherwise
func (s *MailService) dialSMTP(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.smtpHost, fmt.Sprint(s.smtpPort))
	dialer := &net.Dialer{Timeout: connectionTimeout}
	tlsConfig := &tls.Config{ServerName: s.smtpHost}

	var conn net.Conn
	var err error
	if s.smtpPort == implicitTLSPort {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSMTPConnectionFailed, err)
	}

	c, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrSMTPConnectionFailed, err)
	}

	if s.smtpPort != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Close()
				return nil, fmt.Errorf("%w: STARTTLS failed: %v", ErrSMTPConnectionFailed, err)
			}
		}
	}
	return c, nil
}

// authenticate tries PLAIN first and falls back to LOGIN
func (s *MailService) authenticate(c *smtp.Client) error {
	if ok, _ := c.Extension("AUTH"); !ok {
		return errors.New("server does not support AUTH")
	}
	err := c.Auth(smtp.PlainAuth("", s.address, s.password, s.smtpHost))
	if err == nil {
		return nil
	}
	if err2 := c.Auth(newLoginAuth(s.address, s.password)); err2 != nil {
		return fmt.Errorf("authentication failed (tried PLAIN and LOGIN): %v", err)
	}
	return nil
}

// buildMessage renders the RFC 822 message with go-message
func buildMessage(senderName, from, to, subject, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: senderName, Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// connectIMAP opens a TLS session, identifies the client and logs in
func (s *MailService) connectIMAP() (*client.Client, error) {
	addr := net.JoinHostPort(s.imapHost, fmt.Sprint(s.imapPort))
	dialer := &net.Dialer{Timeout: connectionTimeout}

	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.imapHost})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
	}
	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
	}
	c.Timeout = imapCommandTimeout

	if ok, _ := c.Support("ID"); ok {
		_, err := id.NewClient(c).ID(id.ID{
			id.FieldName:    "HCN Mail",
			id.FieldVersion: "1.0.0",
			id.FieldVendor:  "HCN Mail",
		})
		if err != nil {
			logger.WithModule("mail").Debugf("IMAP ID rejected: %v", err)
		}
	}

	if err := c.Login(s.address, s.password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrIMAPConnectionFailed, err)
	}
	return c, nil
}

// FetchSince returns every message received on or after since's date.
// The mailbox is selected read-only and bodies are fetched with Peek, so
// nothing is marked as seen.
func (s *MailService) FetchSince(ctx context.Context, since time.Time) ([]InboundMessage, error) {
	if !s.configured() {
		return nil, ErrNotConfigured
	}
	log := logger.WithModule("mail")

	c, err := s.connectIMAP()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select(s.mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select %s: %v", ErrIMAPConnectionFailed, s.mailbox, err)
	}
	if mbox.Messages == 0 {
		return []InboundMessage{}, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrIMAPConnectionFailed, err)
	}
	log.Infof("Found %d messages since %s", len(uids), criteria.Since.Format("02-Jan-2006"))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}
	fetched := make([]InboundMessage, 0, len(uids))
	var parseErrors int

	for i := 0; i < len(uids); i += fetchBatchSize {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		end := i + fetchBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		uidSet := new(imap.SeqSet)
		uidSet.AddNum(uids[i:end]...)

		messages := make(chan *imap.Message, fetchBatchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(uidSet, items, messages)
		}()

		for msg := range messages {
			if msg == nil {
				continue
			}
			literal := msg.GetBody(section)
			if literal == nil {
				continue
			}
			raw, err := io.ReadAll(literal)
			if err != nil || len(raw) == 0 {
				continue
			}
			in, err := parseInbound(raw)
			if err != nil {
				parseErrors++
				continue
			}
			in.UID = msg.Uid
			if msg.Envelope != nil {
				if in.Subject == "" {
					in.Subject = msg.Envelope.Subject
				}
				if in.MessageID == "" {
					in.MessageID = msg.Envelope.MessageId
				}
				if in.Date.IsZero() {
					in.Date = msg.Envelope.Date
				}
			}
			if in.MessageID == "" {
				in.MessageID = fmt.Sprintf("uid:%d", msg.Uid)
			}
			fetched = append(fetched, in)
		}

		if err := <-done; err != nil {
			log.Warnf("UidFetch error: %v", err)
		}
	}

	log.Infof("Fetched %d messages (%d unparsable)", len(fetched), parseErrors)
	return fetched, nil
}

// parseInbound decodes headers and takes the first text/plain part as body
func parseInbound(raw []byte) (InboundMessage, error) {
	in := InboundMessage{Raw: raw}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return in, err
	}
	defer mr.Close()

	if subject, err := mr.Header.Subject(); err == nil {
		in.Subject = subject
	} else {
		in.Subject = mr.Header.Get("Subject")
	}
	if msgID, err := mr.Header.MessageID(); err == nil && msgID != "" {
		in.MessageID = "<" + msgID + ">"
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		in.From = from[0].Address
	}
	if date, err := mr.Header.Date(); err == nil {
		in.Date = date
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := h.ContentType()
		if mediaType != "" && mediaType != "text/plain" {
			continue
		}
		body, _ := io.ReadAll(p.Body)
		in.Body = string(body)
		break
	}
	return in, nil
}
