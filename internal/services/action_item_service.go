package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrActionItemNotFound indicates the action item was not found
	ErrActionItemNotFound = errors.New("action item not found")
	// ErrInvalidActionItem indicates a required field is missing
	ErrInvalidActionItem = errors.New("booking id and action type are required")
)

// DefaultRecentActionItems is the page size for the recent items feed
const DefaultRecentActionItems = 50

// ActionItemService keeps the per-booking activity trail
type ActionItemService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewActionItemService creates a new ActionItemService instance
func NewActionItemService(db *gorm.DB) *ActionItemService {
	return &ActionItemService{db: db, now: time.Now}
}

// Add appends an item to a booking's trail. The id is
// {booking_id}_{n}_{YYYYmmddHHMMSS} with n one past the booking's item count.
func (s *ActionItemService) Add(bookingID string, actionType models.ActionType, description, performedBy string, metadata map[string]interface{}) (*models.ActionItem, error) {
	if bookingID == "" || actionType == "" {
		return nil, ErrInvalidActionItem
	}
	if performedBy == "" {
		performedBy = models.PerformedBySystem
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	var count int64
	if err := s.db.Model(&models.ActionItem{}).Where("booking_id = ?", bookingID).Count(&count).Error; err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.ActionItem{
		BookingID:   bookingID,
		ActionType:  string(actionType),
		Description: description,
		PerformedBy: performedBy,
		Timestamp:   now,
		Metadata:    datatypes.JSONMap(metadata),
	}

	// A deleted item can free up a sequence number that is still taken by a
	// later one, so probe until the id is unused.
	for n := count + 1; ; n++ {
		item.ID = fmt.Sprintf("%s_%d_%s", bookingID, n, now.Format("20060102150405"))
		var existing int64
		if err := s.db.Model(&models.ActionItem{}).Where("id = ?", item.ID).Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing == 0 {
			break
		}
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// ByBooking returns a booking's items, oldest first
func (s *ActionItemService) ByBooking(bookingID string) ([]models.ActionItem, error) {
	var items []models.ActionItem
	if err := s.db.Where("booking_id = ?", bookingID).Order("timestamp ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Recent returns the newest items across all bookings
func (s *ActionItemService) Recent(limit int) ([]models.ActionItem, error) {
	if limit <= 0 {
		limit = DefaultRecentActionItems
	}

	var items []models.ActionItem
	if err := s.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes an item by id
func (s *ActionItemService) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.ActionItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrActionItemNotFound
	}
	return nil
}
