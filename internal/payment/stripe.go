package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// ErrMissingCredentials means no secret key is configured
var ErrMissingCredentials = errors.New("stripe secret key is not configured")

// StripeGateway creates checkout sessions through the Stripe API
type StripeGateway struct {
	sessions *session.Client
}

// NewStripeGateway creates a gateway bound to the given secret key
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
	}
}

// CreateSession creates a payment-mode checkout session
func (g *StripeGateway) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	if g.sessions.Key == "" {
		return nil, ErrMissingCredentials
	}
	if len(p.LineItems) == 0 {
		return nil, ErrNoUsableLineItem
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx

	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if p.FormalityID != 0 {
		params.AddMetadata("formalityId", strconv.FormatInt(p.FormalityID, 10))
	}

	for _, item := range p.LineItems {
		li := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
		}
		if item.PriceID != "" {
			li.Price = stripe.String(item.PriceID)
		} else {
			li.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(item.Currency),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Label),
				},
			}
		}
		params.LineItems = append(params.LineItems, li)
	}

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}

	return &Session{
		ID:          sess.ID,
		URL:         sess.URL,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}, nil
}
