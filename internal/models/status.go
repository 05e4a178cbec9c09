package models

// Status is the lifecycle state of a formality.
//
// An earlier schema generation used a finer-grained set (pending, audit,
// pieces, payment, fiscal_registration, parutions, saisie, validation); it is
// not supported here. Rows still carrying one of those values must be migrated
// before upgrading.
type Status string

const (
	StatusPendingPayment      Status = "pending_payment"
	StatusPaid                Status = "paid"
	StatusFormalistProcessing Status = "formalist_processing"
	StatusGreffeProcessing    Status = "greffe_processing"
	StatusValidated           Status = "validated"
)

// AllStatuses lists the lifecycle states in their nominal order
var AllStatuses = []Status{
	StatusPendingPayment,
	StatusPaid,
	StatusFormalistProcessing,
	StatusGreffeProcessing,
	StatusValidated,
}

var statusLabels = map[Status]string{
	StatusPendingPayment:      "En attente de paiement",
	StatusPaid:                "Payé",
	StatusFormalistProcessing: "Traitement par le formaliste",
	StatusGreffeProcessing:    "Traitement par le greffe",
	StatusValidated:           "Dossier validé",
}

// Label returns the French display label used in history entries and emails.
// Unknown values pass through unchanged.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether s is a known lifecycle state
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// TransitionRule is the outcome of asking for a status transition
type TransitionRule int

const (
	// TransitionAllowed means the target status may be written directly
	TransitionAllowed TransitionRule = iota
	// TransitionGuarded means the target status may only be reached through
	// the payment-link flow: a checkout session must exist and the payment
	// email must have been sent before the status is written
	TransitionGuarded
	// TransitionRejected means the target status is not a known state
	TransitionRejected
)

// CanTransition classifies a requested transition. The formalist may move a
// formality between any two known states; the single behavioral guard is that
// pending_payment is never entered by a direct update, only by the
// payment-link flow after a confirmed email send.
func CanTransition(from, to Status) TransitionRule {
	if !to.IsValid() {
		return TransitionRejected
	}
	if to == StatusPendingPayment {
		return TransitionGuarded
	}
	return TransitionAllowed
}
