package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/archive"
	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/database"
	"github.com/amarjeet4296/hcn-email-management/internal/functions"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
)

type memStore struct {
	mu      sync.Mutex
	records []booking.Record
}

func (m *memStore) ReadAll(ctx context.Context) ([]booking.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]booking.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) WriteBack(ctx context.Context, changed []booking.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range changed {
		if i := booking.Find(m.records, rec.Serial); i >= 0 {
			m.records[i] = rec
		}
	}
	return nil
}

// gatedMailer blocks every send until release is closed when gate is set
type gatedMailer struct {
	mu      sync.Mutex
	sent    int
	started chan struct{}
	release chan struct{}
}

func (g *gatedMailer) Send(ctx context.Context, to, subject, body string) error {
	if g.started != nil {
		select {
		case g.started <- struct{}{}:
		default:
		}
		<-g.release
	}
	g.mu.Lock()
	g.sent++
	g.mu.Unlock()
	return nil
}

func (g *gatedMailer) FetchSince(ctx context.Context, since time.Time) ([]services.InboundMessage, error) {
	return nil, nil
}

type testServer struct {
	router *gin.Engine
	auth   *middleware.AuthManager
	store  *memStore
	mailer *gatedMailer
	token  string
}

func newTestServer(t *testing.T, mailer *gatedMailer) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.DelayBetweenEmails = 0
	cfg.ClassifierMode = "local"

	db, err := database.Initialize(filepath.Join(dir, "hcn.db"), "ERROR")
	if err != nil {
		t.Fatalf("database.Initialize: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	auth, err := middleware.NewAuthManager(dir, cfg.SecretKey, cfg.Algorithm, cfg.TokenExpiry())
	if err != nil {
		t.Fatalf("NewAuthManager: %v", err)
	}

	store := &memStore{records: []booking.Record{
		{Row: 3, Serial: 1, Status: "Confirmed", GuestName: "MR. Arjun Mehta", HotelName: "Grand Palace", OurReference: "OSTR-1001", AgentEmail: "a@agent.test"},
		{Row: 4, Serial: 2, Status: "Vouchered", GuestName: "MS. Priya Nair", HotelName: "Sea View", OurReference: "OSTR-2002", AgentEmail: "b@agent.test", EmailSent: booking.Yes, EmailSentAt: "2025-03-10 09:00:00", Issue: booking.IssueCritical},
		{Row: 5, Serial: 3, Status: "Cancelled", GuestName: "MR. Dev Patel", OurReference: "OSTR-3003", AgentEmail: "c@agent.test"},
	}}
	if mailer == nil {
		mailer = &gatedMailer{}
	}

	process := services.NewProcessService(db, cfg, store, mailer,
		functions.NewClassifier(functions.ClassifierModeLocal, nil), archive.NewStore(dir))

	if _, err := services.NewUserService(db).EnsureDefaultAdmin("admin123"); err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}

	srv := &testServer{
		router: SetupRouter(Deps{DB: db, Config: cfg, Process: process, Auth: auth}),
		auth:   auth,
		store:  store,
		mailer: mailer,
	}

	w := srv.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"}, nil)
	var login struct {
		Data struct {
			Token struct {
				AccessToken string `json:"access_token"`
			} `json:"token"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &login)
	if w.Code != http.StatusOK || login.Data.Token.AccessToken == "" {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	srv.token = login.Data.Token.AccessToken
	return srv
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) authed(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, map[string]string{
		middleware.AuthorizationHeader: middleware.BearerPrefix + s.token,
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestRouter_BookingViews(t *testing.T) {
	srv := newTestServer(t, nil)

	if w := srv.do(http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
	if w := srv.do(http.MethodGet, "/api/bookings", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bookings without token: %d", w.Code)
	}

	w := srv.authed(http.MethodGet, "/api/bookings", nil)
	var list struct {
		Total int `json:"total"`
	}
	json.Unmarshal(decode(t, w).Data, &list)
	if w.Code != http.StatusOK || list.Total != 2 {
		t.Errorf("bookings: %d total=%d", w.Code, list.Total)
	}

	w = srv.authed(http.MethodGet, "/api/status", nil)
	var status struct {
		Overview booking.Overview `json:"overview"`
	}
	json.Unmarshal(decode(t, w).Data, &status)
	if status.Overview.Total != 2 || status.Overview.Critical != 1 || status.Overview.Pending != 1 {
		t.Errorf("overview = %+v", status.Overview)
	}

	if w := srv.authed(http.MethodGet, "/api/bookings/99", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing booking: %d", w.Code)
	}
	if w := srv.authed(http.MethodGet, "/api/bookings/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: %d", w.Code)
	}
	if w := srv.authed(http.MethodGet, "/api/bookings/3", nil); w.Code != http.StatusOK {
		t.Errorf("non-accepted booking should still be viewable: %d", w.Code)
	}
}

func TestRouter_ProcessRun(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.authed(http.MethodPost, "/api/process", map[string]string{"action": "launch_rockets"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: %d", w.Code)
	}

	w = srv.authed(http.MethodPost, "/api/process", map[string]string{"action": "send_emails"})
	if w.Code != http.StatusOK {
		t.Fatalf("send_emails: %d %s", w.Code, w.Body.String())
	}
	var summary services.RunSummary
	json.Unmarshal(decode(t, w).Data, &summary)
	if summary.InitialSent != 1 || summary.Status != "completed" {
		t.Errorf("summary = %+v", summary)
	}

	rec, _ := srv.store.ReadAll(context.Background())
	if !rec[0].WasEmailed() || rec[2].WasEmailed() {
		t.Error("only the accepted booking without a request should be emailed")
	}
	if rec[1].EmailSentAt != "2025-03-10 09:00:00" {
		t.Errorf("already emailed booking was sent again at %s", rec[1].EmailSentAt)
	}

	w = srv.authed(http.MethodGet, "/api/bookings/1", nil)
	var detail struct {
		ActionItems []map[string]interface{} `json:"action_items"`
	}
	json.Unmarshal(decode(t, w).Data, &detail)
	if len(detail.ActionItems) != 1 || detail.ActionItems[0]["action_type"] != "email_sent" {
		t.Errorf("action items = %+v", detail.ActionItems)
	}

	w = srv.authed(http.MethodGet, "/api/process/runs", nil)
	var runs []map[string]interface{}
	json.Unmarshal(decode(t, w).Data, &runs)
	if len(runs) != 1 || runs[0]["trigger"] != "api" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRouter_ConcurrentRunConflicts(t *testing.T) {
	mailer := &gatedMailer{started: make(chan struct{}, 1), release: make(chan struct{})}
	srv := newTestServer(t, mailer)

	done := make(chan int)
	go func() {
		done <- srv.authed(http.MethodPost, "/api/process", nil).Code
	}()

	select {
	case <-mailer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the mailer")
	}

	w := srv.authed(http.MethodPost, "/api/process", map[string]string{"action": "check_inbox"})
	env := decode(t, w)
	if w.Code != http.StatusConflict || env.Error.Message != "Process already running" {
		t.Errorf("second run: %d %+v", w.Code, env.Error)
	}

	close(mailer.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first run: %d", code)
	}
}

func TestRouter_MachineTrigger(t *testing.T) {
	srv := newTestServer(t, nil)

	if w := srv.do(http.MethodPost, "/api/trigger/process", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("trigger without key: %d", w.Code)
	}
	// a JWT is not a substitute for the API key
	if w := srv.authed(http.MethodPost, "/api/trigger/process", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("trigger with JWT only: %d", w.Code)
	}

	w := srv.do(http.MethodPost, "/api/trigger/process", map[string]string{"action": "send_reminders"}, map[string]string{
		middleware.APIKeyHeader: srv.auth.APIKeyManager.GetCurrentKey(),
	})
	if w.Code != http.StatusOK {
		t.Errorf("trigger with key: %d %s", w.Code, w.Body.String())
	}
}

func TestRouter_ActionItems(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.authed(http.MethodPost, "/api/action-items/add", map[string]interface{}{
		"booking_id":  "1",
		"action_type": "supplier_contacted",
		"description": "Called the front office",
		"metadata":    map[string]string{"channel": "phone"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	var item struct {
		ID          string `json:"id"`
		PerformedBy string `json:"performed_by"`
	}
	json.Unmarshal(decode(t, w).Data, &item)
	if item.PerformedBy != "admin" {
		t.Errorf("performed_by = %q", item.PerformedBy)
	}

	if w := srv.authed(http.MethodPost, "/api/action-items/add", map[string]string{
		"booking_id": "1", "action_type": "lunch", "description": "x",
	}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown action type: %d", w.Code)
	}

	w = srv.authed(http.MethodGet, "/api/action-items/recent?limit=5", nil)
	var recent struct {
		Total int `json:"total"`
	}
	json.Unmarshal(decode(t, w).Data, &recent)
	if recent.Total != 1 {
		t.Errorf("recent total = %d", recent.Total)
	}

	if w := srv.authed(http.MethodDelete, "/api/action-items/"+item.ID, nil); w.Code != http.StatusOK {
		t.Errorf("delete: %d", w.Code)
	}
	if w := srv.authed(http.MethodDelete, "/api/action-items/"+item.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", w.Code)
	}
}

func TestRouter_ConfigAndLogs(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.authed(http.MethodGet, "/api/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("config: %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte(config.DefaultSecretKey)) {
		t.Error("config response leaks the secret key")
	}

	w = srv.authed(http.MethodGet, "/api/logs?module=auth&action=login", nil)
	var logs struct {
		Total int64 `json:"total"`
	}
	json.Unmarshal(decode(t, w).Data, &logs)
	if w.Code != http.StatusOK || logs.Total < 1 {
		t.Errorf("logs: %d total=%d", w.Code, logs.Total)
	}

	if w := srv.authed(http.MethodGet, "/api/logs?start=yesterday", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad start: %d", w.Code)
	}

	var recent struct {
		Level string `json:"level"`
		Logs  []struct {
			Module string `json:"module"`
		} `json:"logs"`
	}
	w = srv.authed(http.MethodGet, "/api/logs/recent?module=auth&limit=5", nil)
	json.Unmarshal(decode(t, w).Data, &recent)
	if w.Code != http.StatusOK || recent.Level != config.DefaultLogLevel || len(recent.Logs) == 0 {
		t.Fatalf("recent auth logs: %d %+v", w.Code, recent)
	}
	for _, l := range recent.Logs {
		if l.Module != "auth" {
			t.Errorf("module filter leaked %q", l.Module)
		}
	}

	recent.Logs = nil
	w = srv.authed(http.MethodGet, "/api/logs/recent?limit=1", nil)
	json.Unmarshal(decode(t, w).Data, &recent)
	if w.Code != http.StatusOK || len(recent.Logs) != 1 {
		t.Errorf("recent logs limit: %d %d", w.Code, len(recent.Logs))
	}
}
