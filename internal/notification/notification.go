package notification

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Kind selects the email layout. It must be set explicitly by the caller;
// the dispatcher never guesses from the payload shape.
type Kind string

const (
	// KindPaymentLink is the payment request email with the checkout button
	KindPaymentLink Kind = "payment_link"
	// KindStatusChange announces a lifecycle status change
	KindStatusChange Kind = "status_change"
	// KindModification covers every other change on a formality
	KindModification Kind = "modification"
)

var (
	ErrNoRecipients = errors.New("notification has no recipients")
	ErrUnknownKind  = errors.New("notification kind is missing or unknown")
)

// Meta carries the kind-specific details rendered in the email body
type Meta struct {
	OldStatus string
	NewStatus string
	Amount    int64  // minor units
	Currency  string // ISO code, lowercase
}

// Notification is one outbound email about a formality
type Notification struct {
	Recipients  []string
	Subject     string
	Message     string
	Kind        Kind
	ActionURL   string
	ActionLabel string
	CompanyName string
	Meta        Meta
}

// Validate checks the invariants the dispatcher relies on
func (n *Notification) Validate() error {
	if len(n.Recipients) == 0 {
		return ErrNoRecipients
	}
	switch n.Kind {
	case KindPaymentLink, KindStatusChange, KindModification:
		return nil
	}
	return ErrUnknownKind
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #1a1a2e; max-width: 600px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #16213e;">{{.Subject}}</h2>
  {{if .CompanyName}}<p style="color: #555;">Dossier : <strong>{{.CompanyName}}</strong></p>{{end}}
  <p>{{.Message}}</p>
  {{if .StatusLine}}<p>{{.StatusLine}}</p>{{end}}
  {{if .AmountLine}}<p><strong>{{.AmountLine}}</strong></p>{{end}}
  {{if .ActionURL}}
  <p style="margin: 32px 0;">
    <a href="{{.ActionURL}}" style="background-color: #0f3460; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 4px;">{{.ActionLabel}}</a>
  </p>
  {{end}}
  <p style="color: #888; font-size: 12px;">Cet email a été envoyé automatiquement, merci de ne pas y répondre directement.</p>
</body>
</html>`))

type templateData struct {
	Subject     string
	CompanyName string
	Message     string
	StatusLine  string
	AmountLine  string
	ActionURL   string
	ActionLabel string
}

func (n *Notification) templateData() templateData {
	data := templateData{
		Subject:     n.Subject,
		CompanyName: n.CompanyName,
		Message:     n.Message,
		ActionURL:   n.ActionURL,
		ActionLabel: n.ActionLabel,
	}
	if data.ActionURL != "" && data.ActionLabel == "" {
		data.ActionLabel = "Ouvrir"
	}
	if n.Kind == KindStatusChange && n.Meta.OldStatus != "" && n.Meta.NewStatus != "" {
		data.StatusLine = fmt.Sprintf("Statut : %s → %s", n.Meta.OldStatus, n.Meta.NewStatus)
	}
	if n.Kind == KindPaymentLink && n.Meta.Amount > 0 {
		data.AmountLine = fmt.Sprintf("Montant à régler : %s", FormatAmount(n.Meta.Amount, n.Meta.Currency))
	}
	return data
}

// RenderHTML produces the HTML body for the notification
func (n *Notification) RenderHTML() (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, n.templateData()); err != nil {
		return "", fmt.Errorf("error rendering email template: %w", err)
	}
	return buf.String(), nil
}

// RenderText produces the plain-text alternative
func (n *Notification) RenderText() string {
	data := n.templateData()

	var b strings.Builder
	if data.CompanyName != "" {
		fmt.Fprintf(&b, "Dossier : %s\n\n", data.CompanyName)
	}
	b.WriteString(data.Message)
	b.WriteString("\n")
	if data.StatusLine != "" {
		fmt.Fprintf(&b, "\n%s\n", data.StatusLine)
	}
	if data.AmountLine != "" {
		fmt.Fprintf(&b, "\n%s\n", data.AmountLine)
	}
	if data.ActionURL != "" {
		fmt.Fprintf(&b, "\n%s : %s\n", data.ActionLabel, data.ActionURL)
	}
	return b.String()
}

// FormatAmount renders a minor-unit amount with its currency, e.g. "120,00 EUR"
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "eur"
	}
	return fmt.Sprintf("%d,%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}
