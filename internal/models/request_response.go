package models

// Request models
type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=client formalist"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"omitempty,email"`
}

type CreateFormalityRequest struct {
	CompanyName             string   `json:"companyName" binding:"required"`
	Siren                   string   `json:"siren"`
	Type                    string   `json:"type" binding:"required"`
	IsUrgent                bool     `json:"isUrgent"`
	RequiresTaxRegistration bool     `json:"requiresTaxRegistration"`
	FormalistID             string   `json:"formalistId"`
	TribunalID              *int64   `json:"tribunalId"`
	ClientIDs               []string `json:"clientIds"`
}

// UpdateFormalityRequest carries a partial update; nil fields are untouched.
type UpdateFormalityRequest struct {
	CompanyName *string `json:"companyName"`
	Siren       *string `json:"siren"`
	Status      *Status `json:"status"`
	TribunalID  *int64  `json:"tribunalId"`
	FormalistID *string `json:"formalistId"`
}

type AddClientsRequest struct {
	ClientIDs []string `json:"clientIds" binding:"required,min=1"`
}

type PaymentLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type SendPaymentLinkRequest struct {
	Email     string `json:"email" binding:"required,email"`
	SessionID string `json:"sessionId" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// CheckoutSessionRequest mirrors the external checkout endpoint contract.
// Either FormalityPrices (structured breakdown) or the legacy flat
// Amount/PriceID pair must yield at least one usable line item.
type CheckoutSessionRequest struct {
	FormalityID     int64           `json:"formalityId"`
	FormalityPrices *PriceBreakdown `json:"formalityPrices"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	PriceID         string          `json:"priceId"`
	CustomerEmail   string          `json:"customerEmail"`
	SuccessPath     string          `json:"successPath"`
	CancelPath      string          `json:"cancelPath"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type PaymentLinkResponse struct {
	Status    string `json:"status"`
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type CheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
