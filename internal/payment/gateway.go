package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/formalys/formalys-server/internal/models"
)

// ErrNoUsableLineItem means no component had a positive amount or a valid
// provider price reference, so no checkout session can be created.
var ErrNoUsableLineItem = errors.New("no usable line item")

// LineItem is one resolved checkout line. When PriceID is set it references a
// provider price object and Amount/Label are ignored by the provider.
type LineItem struct {
	PriceID  string
	Label    string
	Amount   int64 // minor units
	Currency string
}

// SessionParams describes the checkout session to create
type SessionParams struct {
	FormalityID   int64
	LineItems     []LineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is the created checkout session
type Session struct {
	ID          string
	URL         string
	AmountTotal int64
	Currency    string
}

// Gateway creates checkout sessions with the payment provider
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}

// usablePriceID reports whether id is a provider price reference. Anything
// without the price_ prefix (empty, a product id, free text) is ignored.
func usablePriceID(id string) bool {
	return strings.HasPrefix(id, "price_")
}

func componentLineItem(c models.PriceComponent, currency string) (LineItem, bool) {
	if usablePriceID(c.PriceID) {
		return LineItem{PriceID: c.PriceID}, true
	}
	if c.Amount > 0 {
		return LineItem{Label: c.Label, Amount: c.Amount, Currency: currency}, true
	}
	return LineItem{}, false
}

// BuildLineItems resolves a checkout request into provider line items. A
// structured breakdown takes precedence over the flat amount/priceId pair.
// Components without a positive amount or a valid price reference are skipped;
// at least one usable item is required.
func BuildLineItems(breakdown *models.PriceBreakdown, amount int64, priceID, currency string) ([]LineItem, error) {
	if currency == "" {
		currency = "eur"
	}

	var items []LineItem

	if breakdown != nil {
		if breakdown.Currency != "" {
			currency = breakdown.Currency
		}
		components := []models.PriceComponent{breakdown.Formality}
		if breakdown.Urgency != nil {
			components = append(components, *breakdown.Urgency)
		}
		if breakdown.TaxReg != nil {
			components = append(components, *breakdown.TaxReg)
		}
		for _, c := range components {
			if item, ok := componentLineItem(c, currency); ok {
				items = append(items, item)
			}
		}
	} else {
		if usablePriceID(priceID) {
			items = append(items, LineItem{PriceID: priceID})
		} else if amount > 0 {
			items = append(items, LineItem{Label: "Formalité", Amount: amount, Currency: currency})
		}
	}

	if len(items) == 0 {
		return nil, ErrNoUsableLineItem
	}

	return items, nil
}

// WithSessionPlaceholder appends the provider's session id placeholder to the
// success URL so the landing page can identify the completed session.
func WithSessionPlaceholder(successURL string) string {
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id={CHECKOUT_SESSION_ID}"
}
