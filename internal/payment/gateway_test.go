package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formalys/formalys-server/internal/models"
)

func TestBuildLineItemsFromBreakdown(t *testing.T) {
	breakdown := &models.PriceBreakdown{
		Formality: models.PriceComponent{Label: "Constitution", Amount: 12000},
		Urgency:   &models.PriceComponent{Label: "Option urgence", Amount: 15000, PriceID: "price_urgency123"},
		Total:     27000,
		Currency:  "eur",
	}

	items, err := BuildLineItems(breakdown, 0, "", "eur")
	assert.NoError(t, err)
	assert.Len(t, items, 2)

	// Inline component keeps label and amount
	assert.Equal(t, "Constitution", items[0].Label)
	assert.Equal(t, int64(12000), items[0].Amount)
	assert.Equal(t, "eur", items[0].Currency)
	assert.Empty(t, items[0].PriceID)

	// A valid price reference takes precedence over the amount
	assert.Equal(t, "price_urgency123", items[1].PriceID)
	assert.Zero(t, items[1].Amount)
}

func TestBuildLineItemsSkipsUnusableComponents(t *testing.T) {
	breakdown := &models.PriceBreakdown{
		Formality: models.PriceComponent{Label: "Constitution", Amount: 12000},
		// Zero amount and a non-price reference: skipped
		Urgency: &models.PriceComponent{Label: "Option urgence", Amount: 0, PriceID: "prod_notaprice"},
		TaxReg:  &models.PriceComponent{Label: "Option enregistrement fiscal", Amount: -1},
	}

	items, err := BuildLineItems(breakdown, 0, "", "eur")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "Constitution", items[0].Label)
}

func TestBuildLineItemsNoUsableComponent(t *testing.T) {
	breakdown := &models.PriceBreakdown{
		Formality: models.PriceComponent{Label: "Constitution", Amount: 0, PriceID: "not-a-price"},
	}

	_, err := BuildLineItems(breakdown, 0, "", "eur")
	assert.ErrorIs(t, err, ErrNoUsableLineItem)

	// Same for the flat form
	_, err = BuildLineItems(nil, 0, "", "eur")
	assert.ErrorIs(t, err, ErrNoUsableLineItem)
}

func TestBuildLineItemsFlat(t *testing.T) {
	// Flat amount without a price reference
	items, err := BuildLineItems(nil, 5000, "", "eur")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "Formalité", items[0].Label)
	assert.Equal(t, int64(5000), items[0].Amount)

	// price_ reference wins over the amount
	items, err = BuildLineItems(nil, 5000, "price_abc", "eur")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "price_abc", items[0].PriceID)
}

func TestBuildLineItemsBreakdownCurrencyWins(t *testing.T) {
	breakdown := &models.PriceBreakdown{
		Formality: models.PriceComponent{Label: "Fusion", Amount: 144000},
		Currency:  "eur",
	}

	items, err := BuildLineItems(breakdown, 0, "", "usd")
	assert.NoError(t, err)
	assert.Equal(t, "eur", items[0].Currency)
}

func TestWithSessionPlaceholder(t *testing.T) {
	assert.Equal(t,
		"https://app.example.com/succes?session_id={CHECKOUT_SESSION_ID}",
		WithSessionPlaceholder("https://app.example.com/succes"))

	assert.Equal(t,
		"https://app.example.com/succes?lang=fr&session_id={CHECKOUT_SESSION_ID}",
		WithSessionPlaceholder("https://app.example.com/succes?lang=fr"))
}
