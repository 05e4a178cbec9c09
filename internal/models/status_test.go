package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "En attente de paiement", StatusPendingPayment.Label())
	assert.Equal(t, "Payé", StatusPaid.Label())
	assert.Equal(t, "Traitement par le formaliste", StatusFormalistProcessing.Label())
	assert.Equal(t, "Traitement par le greffe", StatusGreffeProcessing.Label())
	assert.Equal(t, "Dossier validé", StatusValidated.Label())

	// Unknown values pass through
	assert.Equal(t, "bogus", Status("bogus").Label())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}

	assert.False(t, Status("").IsValid())
	assert.False(t, Status("pending").IsValid())
	assert.False(t, Status("audit").IsValid())
}

func TestCanTransition(t *testing.T) {
	// Any known target except pending_payment is a direct update
	assert.Equal(t, TransitionAllowed, CanTransition(StatusPaid, StatusGreffeProcessing))
	assert.Equal(t, TransitionAllowed, CanTransition(StatusValidated, StatusPaid))
	assert.Equal(t, TransitionAllowed, CanTransition(StatusPendingPayment, StatusPaid))

	// pending_payment is only reachable through the payment-link flow
	for _, from := range AllStatuses {
		assert.Equal(t, TransitionGuarded, CanTransition(from, StatusPendingPayment))
	}

	// Unknown targets are rejected outright
	assert.Equal(t, TransitionRejected, CanTransition(StatusPaid, Status("archived")))
	assert.Equal(t, TransitionRejected, CanTransition(StatusPaid, Status("")))
}

func TestIsValidFormalityType(t *testing.T) {
	assert.True(t, IsValidFormalityType("Constitution"))
	assert.True(t, IsValidFormalityType("Transfert de siège"))
	assert.False(t, IsValidFormalityType("constitution"))
	assert.False(t, IsValidFormalityType(""))
}
