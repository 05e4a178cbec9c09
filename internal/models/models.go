package models

import (
	"time"
)

// Profile represents a user of the platform
type Profile struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Role      string `db:"role" json:"role"`  // "client", "formalist" or "admin"
	Password  string `db:"password" json:"-"` // Password hash, not returned in JSON
}

// Roles accepted in the profiles table. The admin role survives from an older
// schema generation; no current route requires it.
const (
	RoleClient    = "client"
	RoleFormalist = "formalist"
	RoleAdmin     = "admin"
)

// Formality represents a case filed with a commercial-court registry
type Formality struct {
	ID                      int64     `db:"id" json:"id"`
	CompanyName             string    `db:"company_name" json:"companyName"`
	Siren                   string    `db:"siren" json:"siren"`
	Type                    string    `db:"type" json:"type"`
	Status                  Status    `db:"status" json:"status"`
	IsUrgent                bool      `db:"is_urgent" json:"isUrgent"`
	RequiresTaxRegistration bool      `db:"requires_tax_registration" json:"requiresTaxRegistration"`
	TribunalID              *int64    `db:"tribunal_id" json:"tribunalId"`
	TariffID                *int64    `db:"tariff_id" json:"tariffId"`
	FormalistID             string    `db:"formalist_id" json:"formalistId"`
	CreatedBy               string    `db:"created_by" json:"createdBy"`
	CreatedAt               time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time `db:"updated_at" json:"updatedAt"`
}

// FormalityDetail is a formality hydrated with its related rows, plus the
// derived last-updated timestamp (max of updated_at and the latest history
// entry timestamp).
type FormalityDetail struct {
	Formality
	Formalist     *Profile  `json:"formalist,omitempty"`
	Clients       []Profile `json:"clients"`
	Tribunal      *Tribunal `json:"tribunal,omitempty"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// HistoryEntry is an append-only audit record for a formality
type HistoryEntry struct {
	ID          int64     `db:"id" json:"id"`
	FormalityID int64     `db:"formality_id" json:"formalityId"`
	Action      string    `db:"action" json:"action"`
	AuthorID    *string   `db:"author_id" json:"authorId"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// Message is a formality-scoped chat entry
type Message struct {
	ID          int64     `db:"id" json:"id"`
	FormalityID int64     `db:"formality_id" json:"formalityId"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Payment statuses. "created" means a checkout link exists but has not been
// completed; the webhook moves the row to "paid".
const (
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
)

// Payment is one row per generated payment link. Rows are never deleted.
type Payment struct {
	ID                    int64     `db:"id" json:"id"`
	FormalityID           int64     `db:"formality_id" json:"formalityId"`
	StripeSessionID       string    `db:"stripe_session_id" json:"stripeSessionId"`
	StripePaymentIntentID *string   `db:"stripe_payment_intent_id" json:"stripePaymentIntentId"`
	URL                   string    `db:"url" json:"url"`
	Amount                int64     `db:"amount" json:"amount"`
	Currency              string    `db:"currency" json:"currency"`
	CustomerEmail         string    `db:"customer_email" json:"customerEmail"`
	Status                string    `db:"status" json:"status"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// Tariff is a priced catalog entry, amounts in minor currency units (cents).
// PriceID optionally references a provider price object.
type Tariff struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Amount  int64  `db:"amount" json:"amount"`
	PriceID string `db:"price_id" json:"priceId"`
}

// Reserved tariff names for the two option surcharges
const (
	TariffUrgency         = "Option urgence"
	TariffTaxRegistration = "Option enregistrement fiscal"
)

// Tribunal is static reference data for a commercial-court registry
type Tribunal struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Type string `db:"type" json:"type"`
}

// FormalityTypes is the fixed catalog of French legal-act categories
var FormalityTypes = []string{
	"Constitution",
	"Transfert de siège",
	"Adjonction ou suppression d’activité",
	"Modification des organes de direction",
	"Augmentation de capital",
	"Réduction de capital",
	"Transformation",
	"Fusion",
	"TUP",
	"Mise en sommeil",
	"Dissolution",
	"Liquidation",
	"Autres modifications statutaires",
	"Dépôt des comptes",
	"Mise à jour des bénéficiaires effectifs",
	"Pacte Dutreil-transmission",
	"Convention d'animation",
}

// IsValidFormalityType reports whether t is part of the catalog
func IsValidFormalityType(t string) bool {
	for _, ft := range FormalityTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// PriceComponent is one line of a formality price breakdown. Amount is in
// minor units; PriceID, when set and valid, takes precedence over Amount.
type PriceComponent struct {
	Label   string `json:"label"`
	Amount  int64  `json:"amount"`
	PriceID string `json:"priceId,omitempty"`
}

// PriceBreakdown is the computed cost of a formality: the base price with tax
// applied, plus the optional urgency and tax-registration surcharges.
type PriceBreakdown struct {
	Formality PriceComponent  `json:"formality"`
	Urgency   *PriceComponent `json:"urgency,omitempty"`
	TaxReg    *PriceComponent `json:"taxreg,omitempty"`
	Total     int64           `json:"total"`
	Currency  string          `json:"currency"`
}
