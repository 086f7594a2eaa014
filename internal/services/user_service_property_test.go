package services

import (
	"errors"
	"testing"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: hcn-mail-workflow, Property 9: Password storage
// For any password, the stored value is a bcrypt hash that verifies the
// original password and rejects any other.
// Validates: operator authentication

func TestProperty_PasswordHashing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	validPasswordGen := gen.SliceOfN(10, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("password_never_stored_as_plaintext", prop.ForAll(
		func(password string) bool {
			hashed, err := HashPassword(password)
			if err != nil {
				return false
			}
			return hashed != password && IsPasswordHashed(hashed)
		},
		validPasswordGen,
	))

	properties.Property("hash_verifies_only_original", prop.ForAll(
		func(password string) bool {
			hashed, err := HashPassword(password)
			if err != nil {
				return false
			}
			return ComparePassword(hashed, password) && !ComparePassword(hashed, password+"wrong")
		},
		validPasswordGen,
	))

	properties.TestingRun(t)
}

func TestProperty_UserCreationStoresHash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	usernameGen := gen.SliceOfN(8, gen.AlphaLowerChar()).Map(func(chars []rune) string {
		return string(chars)
	})
	passwordGen := gen.SliceOfN(10, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("created_user_verifies_with_password", prop.ForAll(
		func(username, password string) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			service := NewUserService(db)
			created, err := service.CreateUser(username, password, "", "Test User")
			if err != nil {
				return false
			}
			if created.PasswordHash == password || !IsPasswordHashed(created.PasswordHash) {
				return false
			}

			verified, err := service.VerifyPassword(username, password)
			if err != nil || verified.ID != created.ID {
				return false
			}
			_, err = service.VerifyPassword(username, password+"x")
			return errors.Is(err, ErrInvalidCredentials)
		},
		usernameGen,
		passwordGen,
	))

	properties.TestingRun(t)
}

func TestUserService_EnsureDefaultAdmin(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewUserService(db)

	created, err := service.EnsureDefaultAdmin("admin123")
	if err != nil || !created {
		t.Fatalf("EnsureDefaultAdmin on empty table = %v, %v", created, err)
	}
	if _, err := service.VerifyPassword(DefaultAdminUsername, "admin123"); err != nil {
		t.Fatalf("admin cannot log in: %v", err)
	}

	created, err = service.EnsureDefaultAdmin("other-password")
	if err != nil || created {
		t.Fatalf("second EnsureDefaultAdmin = %v, %v", created, err)
	}
}

func TestUserService_PasswordRules(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewUserService(db)

	if _, err := service.CreateUser("ops", "12345", "", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}

	user, err := service.CreateUser("ops", "secret1", "ops@example.com", "Ops")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := service.CreateUser("ops", "secret2", "", ""); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}

	if err := service.ChangePassword(user.ID, "wrong!", "secret2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := service.ChangePassword(user.ID, "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := service.VerifyPassword("ops", "secret2"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	db.Model(&models.User{}).Where("id = ?", user.ID).Update("disabled", true)
	if _, err := service.VerifyPassword("ops", "secret2"); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("expected ErrUserDisabled, got %v", err)
	}

	if err := service.DeleteUser(user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := service.GetUserByID(user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
