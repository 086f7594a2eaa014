package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/database"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/gorm"
)

type userFixture struct {
	router *gin.Engine
	jwt    *middleware.JWTManager
	users  *services.UserService
}

func newUserFixture(t *testing.T) (*userFixture, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"), "ERROR")
	if err != nil {
		t.Fatalf("database.Initialize: %v", err)
	}

	jwtManager, _ := middleware.NewJWTManager("test-secret", "HS256", time.Hour)
	users := services.NewUserService(db)
	logs := services.NewLogService(db)
	validate := validation.New()

	authHandler := NewAuthHandler(users, jwtManager, logs, validate)
	userHandler := NewUserHandler(users, logs, validate)

	router := gin.New()
	router.POST("/api/auth/login", authHandler.Login)
	protected := router.Group("/api", middleware.JWTMiddleware(jwtManager))
	protected.GET("/auth/me", authHandler.GetCurrentUser)
	protected.PUT("/user/password", userHandler.ChangePassword)
	protected.PUT("/user/profile", userHandler.UpdateProfile)

	return &userFixture{router: router, jwt: jwtManager, users: users}, func() { closeDB(db) }
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (f *userFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.AuthorizationHeader, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *userFixture) login(username, password string) (string, int) {
	w := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	var resp struct {
		Data struct {
			Token LoginResponse `json:"token"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Data.Token.Token, w.Code
}

// Feature: hcn-mail-workflow, Property 13: Password change through the API
// For any operator, changing the password requires the current password;
// afterwards only the new password logs in.
// Validates: operator authentication endpoints

func TestProperty_PasswordChangeThroughAPI(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	passwordGen := gen.SliceOfN(10, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})
	usernameGen := gen.SliceOfN(8, gen.AlphaLowerChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("only_new_password_logs_in_after_change", prop.ForAll(
		func(username, oldPassword, newPassword string) bool {
			if oldPassword == newPassword {
				newPassword += "X"
			}

			f, cleanup := newUserFixture(t)
			defer cleanup()

			if _, err := f.users.CreateUser(username, oldPassword, "", "Ops"); err != nil {
				return false
			}

			token, code := f.login(username, oldPassword)
			if code != http.StatusOK || token == "" {
				return false
			}

			w := f.do(http.MethodPut, "/api/user/password", token, map[string]string{
				"old_password": oldPassword + "wrong",
				"new_password": newPassword,
			})
			if w.Code != http.StatusUnauthorized {
				return false
			}

			w = f.do(http.MethodPut, "/api/user/password", token, map[string]string{
				"old_password": oldPassword,
				"new_password": newPassword,
			})
			if w.Code != http.StatusOK {
				return false
			}

			_, oldCode := f.login(username, oldPassword)
			_, newCode := f.login(username, newPassword)
			return oldCode == http.StatusUnauthorized && newCode == http.StatusOK
		},
		usernameGen,
		passwordGen,
		passwordGen,
	))

	properties.TestingRun(t)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	f, cleanup := newUserFixture(t)
	defer cleanup()

	if w := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing password: got %d", w.Code)
	}
	if _, code := f.login("nobody", "whatever"); code != http.StatusUnauthorized {
		t.Errorf("unknown user: got %d", code)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	f, cleanup := newUserFixture(t)
	defer cleanup()

	if _, err := f.users.EnsureDefaultAdmin("admin123"); err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}
	token, code := f.login(services.DefaultAdminUsername, "admin123")
	if code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}

	w := f.do(http.MethodPut, "/api/user/profile", token, map[string]string{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid email accepted: %d", w.Code)
	}

	w = f.do(http.MethodPut, "/api/user/profile", token, map[string]string{
		"email":     "ops@example.com",
		"full_name": "Reservations Desk",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update profile: %d %s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodGet, "/api/auth/me", token, nil)
	var resp struct {
		Success bool         `json:"success"`
		Data    UserResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Email != "ops@example.com" || resp.Data.FullName != "Reservations Desk" {
		t.Errorf("unexpected me response %+v", resp)
	}
}
