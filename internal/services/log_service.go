package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// GetLogLevel returns the minimum level written to the audit log
func (s *LogService) GetLogLevel() models.LogLevel {
	return s.logLevel
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	UserID  uint
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	// Check if this log level should be recorded
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		UserID:  entry.UserID,
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
		Details: detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelInfo,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelWarn,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelError,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelDebug,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// ===== API Request Logging =====

// APIRequestDetails represents details for API request logs
type APIRequestDetails struct {
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Duration   int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// LogAPIRequest logs an API request
func (s *LogService) LogAPIRequest(userID uint, requestID, method, path string, statusCode int, durationMs int64, clientIP, userAgent string) error {
	level := models.LogLevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = models.LogLevelWarn
	} else if statusCode >= 500 {
		level = models.LogLevelError
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAPI,
		Action:  "request",
		Message: method + " " + path,
		Details: APIRequestDetails{
			RequestID:  requestID,
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Duration:   durationMs,
			ClientIP:   clientIP,
			UserAgent:  userAgent,
		},
	})
}

// ===== Mail Logging =====

// MailOperationDetails represents details for outbound and inbound mail logs
type MailOperationDetails struct {
	RunID      string `json:"run_id,omitempty"`
	BookingID  string `json:"booking_id,omitempty"`
	To         string `json:"to,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Reminder   bool   `json:"reminder,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	EmailCount int    `json:"email_count,omitempty"`
}

// LogMailSend logs an initial request or reminder send
func (s *LogService) LogMailSend(runID, bookingID, to, subject string, reminder bool, err error) error {
	details := MailOperationDetails{
		RunID:     runID,
		BookingID: bookingID,
		To:        to,
		Subject:   subject,
		Reminder:  reminder,
		Status:    "sent",
	}

	level := models.LogLevelInfo
	message := "HCN request sent"
	if reminder {
		message = "HCN reminder sent"
	}

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Failed to send email"
	}

	action := "send"
	if reminder {
		action = "remind"
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleMail,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogMailFetch logs an inbox fetch
func (s *LogService) LogMailFetch(runID string, emailCount int, err error) error {
	details := MailOperationDetails{
		RunID:      runID,
		EmailCount: emailCount,
		Status:     "success",
	}

	level := models.LogLevelInfo
	message := "Fetched replies successfully"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Failed to fetch replies"
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleMail,
		Action:  "fetch",
		Message: message,
		Details: details,
	})
}

// ===== Classification Logging =====

// ClassificationDetails represents details for reply classification logs
type ClassificationDetails struct {
	RunID       string   `json:"run_id"`
	BookingID   string   `json:"booking_id,omitempty"`
	MessageID   string   `json:"message_id"`
	Category    string   `json:"category,omitempty"`
	HCN         string   `json:"hcn,omitempty"`
	ProcessedBy string   `json:"processed_by,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
}

// LogReplyClassified logs the verdict applied to a booking
func (s *LogService) LogReplyClassified(details ClassificationDetails) error {
	return s.LogInfo(0, models.LogModuleClassify, "classify", "Reply classified as "+details.Category, details)
}

// LogReplyAmbiguous logs a reply that matched several bookings equally well
func (s *LogService) LogReplyAmbiguous(details ClassificationDetails) error {
	return s.LogWarn(0, models.LogModuleClassify, "ambiguous", "Reply matched several bookings", details)
}

// ===== Run Logging =====

// LogRunFinished logs the outcome of a process run
func (s *LogService) LogRunFinished(userID uint, run *models.ProcessRun) error {
	level := models.LogLevelInfo
	if run.Status == models.RunStatusFailed {
		level = models.LogLevelError
	} else if run.Status == models.RunStatusCancelled {
		level = models.LogLevelWarn
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleProcess,
		Action:  run.Action,
		Message: "Process run " + run.Status,
		Details: run,
	})
}

// ===== Authentication Logging =====

// AuthOperationDetails represents details for authentication operation logs
type AuthOperationDetails struct {
	Username  string `json:"username,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Status    string `json:"status"`
	ErrorMsg  string `json:"error_msg,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// LogLogin logs a login attempt
func (s *LogService) LogLogin(userID uint, username, clientIP string, success bool, err error) error {
	details := AuthOperationDetails{
		Username: username,
		ClientIP: clientIP,
		Status:   "success",
	}

	level := models.LogLevelInfo
	message := "User logged in successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "failed"
		message = "Login attempt failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "login",
		Message: message,
		Details: details,
	})
}

// LogLogout logs a logout event
func (s *LogService) LogLogout(userID uint) error {
	return s.LogInfo(userID, models.LogModuleAuth, "logout", "User logged out", nil)
}

// LogTokenGenerated logs a token generation event
func (s *LogService) LogTokenGenerated(userID uint, tokenType string) error {
	return s.LogInfo(userID, models.LogModuleAuth, "token_generated", "Token generated", AuthOperationDetails{
		TokenType: tokenType,
		Status:    "success",
	})
}

// LogAPIKeyValidation logs an API key validation attempt
func (s *LogService) LogAPIKeyValidation(success bool, clientIP string, err error) error {
	details := AuthOperationDetails{
		ClientIP: clientIP,
		Status:   "valid",
	}

	level := models.LogLevelDebug
	message := "API key validated successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "invalid"
		message = "API key validation failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "api_key_validation",
		Message: message,
		Details: details,
	})
}

// LogAPIKeyReset logs an API key reset event
func (s *LogService) LogAPIKeyReset(userID uint) error {
	return s.LogInfo(userID, models.LogModuleAuth, "api_key_reset", "API key reset", nil)
}

// LogPasswordChange logs a password change event
func (s *LogService) LogPasswordChange(userID uint, success bool, err error) error {
	details := AuthOperationDetails{
		Status: "success",
	}

	level := models.LogLevelInfo
	message := "Password changed successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "failed"
		message = "Password change failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "password_change",
		Message: message,
		Details: details,
	})
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	UserID    uint
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.UserID > 0 {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	offset := (query.Page - 1) * query.Limit

	var logs []models.Log
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{
		Total: total,
		Logs:  logs,
	}, nil
}

// GetRecentLogs retrieves the most recent logs
func (s *LogService) GetRecentLogs(limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetLogsByModule retrieves logs for a specific module
func (s *LogService) GetLogsByModule(module models.LogModule, limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Where("module = ?", string(module)).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
