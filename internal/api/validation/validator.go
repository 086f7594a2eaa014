package validation

import (
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	validatorv10 "github.com/go-playground/validator/v10"
)

// ActionTypes lists the action item types an operator may record
var ActionTypes = []models.ActionType{
	models.ActionEmailSent,
	models.ActionReminderSent,
	models.ActionHCNReceived,
	models.ActionIssueMarked,
	models.ActionNoteAdded,
	models.ActionStatusUpdated,
	models.ActionSupplierContact,
	models.ActionManualResolution,
}

// New returns a validator with the domain tags registered
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// run_action accepts the names understood by the process orchestrator
	v.RegisterValidation("run_action", func(fl validatorv10.FieldLevel) bool {
		_, err := services.ParseRunAction(fl.Field().String())
		return err == nil
	})

	v.RegisterValidation("action_type", func(fl validatorv10.FieldLevel) bool {
		value := models.ActionType(fl.Field().String())
		for _, t := range ActionTypes {
			if t == value {
				return true
			}
		}
		return false
	})

	v.RegisterStructValidation(addActionItemStructValidation, AddActionItemRequest{})

	return v
}

// addActionItemStructValidation requires a reason on manual resolutions
func addActionItemStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(AddActionItemRequest)

	if models.ActionType(req.ActionType) == models.ActionManualResolution {
		if reason, _ := req.Metadata["resolution"].(string); reason == "" {
			sl.ReportError(req.Metadata, "metadata", "Metadata", "resolution_required", "")
		}
	}
}
