package services

import (
	"errors"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the username is already taken
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates invalid login credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled indicates the account is disabled
	ErrUserDisabled = errors.New("user is disabled")
	// ErrPasswordTooShort indicates the password is too short
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// DefaultAdminUsername is the account created on first start
const DefaultAdminUsername = "admin"

const minPasswordLength = 6

// UserService handles dashboard operators
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new user with a bcrypt password hash
func (s *UserService) CreateUser(username, password, email, fullName string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var existingUser models.User
	if err := s.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Email:        email,
		FullName:     fullName,
	}
	if err := s.db.Create(newUser).Error; err != nil {
		return nil, err
	}
	return newUser, nil
}

// EnsureDefaultAdmin creates the admin user when the user table is empty.
// It reports whether a user was created.
func (s *UserService) EnsureDefaultAdmin(password string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(DefaultAdminUsername, password, "", "Administrator"); err != nil {
		return false, err
	}
	logger.WithModule("auth").Warnf("Created default user %q, change its password", DefaultAdminUsername)
	return true, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var foundUser models.User
	if err := s.db.First(&foundUser, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var foundUser models.User
	if err := s.db.Where("username = ?", username).First(&foundUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// UpdateProfile updates the user's contact details
func (s *UserService) UpdateProfile(id uint, email, fullName string) (*models.User, error) {
	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	foundUser.Email = email
	foundUser.FullName = fullName

	if err := s.db.Save(foundUser).Error; err != nil {
		return nil, err
	}
	return foundUser, nil
}

// DeleteUser deletes a user
func (s *UserService) DeleteUser(id uint) error {
	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	return s.db.Delete(foundUser).Error
}

// ListUsers returns all users
func (s *UserService) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// VerifyPassword checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) VerifyPassword(username, password string) (*models.User, error) {
	foundUser, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !ComparePassword(foundUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if foundUser.Disabled {
		return nil, ErrUserDisabled
	}
	return foundUser, nil
}

// ChangePassword changes a user's password after checking the old one
func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	if !ComparePassword(foundUser.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	foundUser.PasswordHash = hashedPassword
	return s.db.Save(foundUser).Error
}

// ResetPassword resets a user's password (admin operation)
func (s *UserService) ResetPassword(id uint, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	foundUser.PasswordHash = hashedPassword
	return s.db.Save(foundUser).Error
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// ComparePassword compares a password with a hash
func ComparePassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// IsPasswordHashed checks if a string looks like a bcrypt hash
func IsPasswordHashed(password string) bool {
	if len(password) < 4 {
		return false
	}
	return password[:4] == "$2a$" || password[:4] == "$2b$" || password[:4] == "$2y$"
}
