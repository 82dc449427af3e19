package handlers

// AuthorizeRequest asks for a hold of the maximum entry amount
type AuthorizeRequest struct {
	CardToken string `json:"card_token" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// EntryRequest exchanges a held authorization for a numbered entry
type EntryRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"max=40"`
	PaymentRef string `json:"payment_ref" validate:"required"`
}

// ManualEntryRequest creates an entry without payment. Number 0 picks the
// lowest free primary number.
type ManualEntryRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"max=40"`
	Number int    `json:"number" validate:"min=0,max=360"`
	Amount int64  `json:"amount" validate:"min=100,max=36000"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// SettingsUpdateRequest patches settings; absent fields are left unchanged
type SettingsUpdateRequest struct {
	CampaignName            *string `json:"campaign_name" validate:"omitempty,max=200"`
	PrizeDescription        *string `json:"prize_description" validate:"omitempty,max=500"`
	CashValue               *int64  `json:"cash_value" validate:"omitempty,min=0"`
	IsActive                *bool   `json:"is_active"`
	OverflowEnabled         *bool   `json:"overflow_enabled"`
	OverflowDurationMinutes *int    `json:"overflow_duration" validate:"omitempty,min=1,max=10080"`
}

// LoginRequest carries admin credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
