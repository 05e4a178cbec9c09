package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	n := Notification{
		Recipients: []string{"client@example.fr"},
		Subject:    "Test",
		Message:    "Bonjour",
		Kind:       KindModification,
	}
	assert.NoError(t, n.Validate())

	// No recipients
	empty := n
	empty.Recipients = nil
	assert.ErrorIs(t, empty.Validate(), ErrNoRecipients)

	// Kind is required, never inferred
	noKind := n
	noKind.Kind = ""
	assert.ErrorIs(t, noKind.Validate(), ErrUnknownKind)

	unknown := n
	unknown.Kind = Kind("newsletter")
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownKind)
}

func TestRenderPaymentLink(t *testing.T) {
	n := Notification{
		Recipients:  []string{"client@example.fr"},
		Subject:     "Paiement de votre formalité",
		Message:     "Merci de procéder au règlement.",
		Kind:        KindPaymentLink,
		ActionURL:   "https://checkout.example.com/cs_123",
		ActionLabel: "Payer en ligne",
		CompanyName: "ACME SAS",
		Meta:        Meta{Amount: 27000, Currency: "eur"},
	}

	html, err := n.RenderHTML()
	assert.NoError(t, err)
	assert.Contains(t, html, "ACME SAS")
	assert.Contains(t, html, "https://checkout.example.com/cs_123")
	assert.Contains(t, html, "Payer en ligne")
	assert.Contains(t, html, "270,00 EUR")

	text := n.RenderText()
	assert.Contains(t, text, "Merci de procéder au règlement.")
	assert.Contains(t, text, "https://checkout.example.com/cs_123")
	assert.Contains(t, text, "270,00 EUR")
}

func TestRenderStatusChange(t *testing.T) {
	n := Notification{
		Recipients:  []string{"client@example.fr"},
		Subject:     "Mise à jour du dossier",
		Message:     "Le statut a changé.",
		Kind:        KindStatusChange,
		CompanyName: "ACME SAS",
		Meta:        Meta{OldStatus: "Payé", NewStatus: "Traitement par le formaliste"},
	}

	html, err := n.RenderHTML()
	assert.NoError(t, err)
	assert.Contains(t, html, "Payé")
	assert.Contains(t, html, "Traitement par le formaliste")

	text := n.RenderText()
	assert.Contains(t, text, "Payé")
	assert.Contains(t, text, "Traitement par le formaliste")
}

func TestRenderEscapesHTML(t *testing.T) {
	n := Notification{
		Recipients:  []string{"client@example.fr"},
		Subject:     "Test",
		Message:     "<script>alert(1)</script>",
		Kind:        KindModification,
		CompanyName: "ACME & Co",
	}

	html, err := n.RenderHTML()
	assert.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "ACME &amp; Co")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "120,00 EUR", FormatAmount(12000, "eur"))
	assert.Equal(t, "270,50 EUR", FormatAmount(27050, "eur"))
	assert.Equal(t, "0,05 EUR", FormatAmount(5, ""))
}
