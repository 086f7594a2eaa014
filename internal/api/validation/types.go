package validation

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the payload for PUT /api/user/profile
type UpdateProfileRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	FullName string `json:"full_name" validate:"max=100"`
}

// ChangePasswordRequest is the payload for PUT /api/user/password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,nefield=OldPassword"`
}

// ProcessRequest is the payload for POST /api/process and the machine trigger.
// An empty action runs the full process.
type ProcessRequest struct {
	Action string `json:"action" validate:"omitempty,run_action"`
}

// AddActionItemRequest is the payload for POST /api/action-items/add
type AddActionItemRequest struct {
	BookingID   string                 `json:"booking_id" validate:"required,numeric,max=50"`
	ActionType  string                 `json:"action_type" validate:"required,action_type"`
	Description string                 `json:"description" validate:"required,max=2000"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
