package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestLogger(nil))
	router.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", w.Header().Get(RequestIDHeader), seen)
	}

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if seen != given {
		t.Errorf("caller request id not kept: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\r\nX-Injected: 1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("malformed request id was echoed: %q", seen)
	}
}
