package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/notification"
	"github.com/formalys/formalys-server/internal/payment"
)

// taxRate is the VAT multiplier applied to the base tariff
const taxRate = 1.2

// defaultCurrency is the only currency the tariff catalog is priced in
const defaultCurrency = "eur"

// Pricing and payment methods
func (s *DefaultService) GetPrice(ctx context.Context, userID string, formalityID int64) (*models.PriceBreakdown, error) {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return nil, err
	}

	return s.computePrice(ctx, formality)
}

// computePrice resolves the formality cost from the tariff catalog: the base
// tariff for the formality type with tax applied, plus the urgency and
// tax-registration surcharges when the corresponding flags are set.
func (s *DefaultService) computePrice(ctx context.Context, formality *models.Formality) (*models.PriceBreakdown, error) {
	base, err := s.repo.GetTariffByName(ctx, formality.Type)
	if err != nil {
		return nil, fmt.Errorf("error getting tariff: %w", err)
	}

	breakdown := &models.PriceBreakdown{Currency: defaultCurrency}
	breakdown.Formality = models.PriceComponent{Label: formality.Type}
	if base != nil {
		breakdown.Formality.Amount = int64(math.Round(float64(base.Amount) * taxRate))
		breakdown.Formality.PriceID = base.PriceID
	}
	breakdown.Total = breakdown.Formality.Amount

	if formality.IsUrgent {
		tariff, err := s.repo.GetTariffByName(ctx, models.TariffUrgency)
		if err != nil {
			return nil, fmt.Errorf("error getting urgency tariff: %w", err)
		}
		if tariff != nil {
			breakdown.Urgency = &models.PriceComponent{Label: tariff.Name, Amount: tariff.Amount, PriceID: tariff.PriceID}
			breakdown.Total += tariff.Amount
		}
	}

	if formality.RequiresTaxRegistration {
		tariff, err := s.repo.GetTariffByName(ctx, models.TariffTaxRegistration)
		if err != nil {
			return nil, fmt.Errorf("error getting tax-registration tariff: %w", err)
		}
		if tariff != nil {
			breakdown.TaxReg = &models.PriceComponent{Label: tariff.Name, Amount: tariff.Amount, PriceID: tariff.PriceID}
			breakdown.Total += tariff.Amount
		}
	}

	return breakdown, nil
}

// GeneratePaymentLink creates a checkout session for the formality price and
// records the payment row. The formality status is not touched here; that
// happens in SendPaymentLink once the email is confirmed sent.
func (s *DefaultService) GeneratePaymentLink(ctx context.Context, userID string, formalityID int64, req models.PaymentLinkRequest) (*models.PaymentLinkResponse, error) {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.computePrice(ctx, formality)
	if err != nil {
		return nil, err
	}

	items, err := payment.BuildLineItems(breakdown, 0, "", defaultCurrency)
	if err != nil {
		if errors.Is(err, payment.ErrNoUsableLineItem) {
			return nil, ErrInvalidPrice
		}
		return nil, err
	}

	sess, err := s.gateway.CreateSession(ctx, payment.SessionParams{
		FormalityID:   formalityID,
		LineItems:     items,
		CustomerEmail: req.Email,
		SuccessURL:    payment.WithSessionPlaceholder(s.publicBaseURL + "/paiement/succes"),
		CancelURL:     s.publicBaseURL + "/paiement/annule",
	})
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}

	row := &models.Payment{
		FormalityID:     formalityID,
		StripeSessionID: sess.ID,
		URL:             sess.URL,
		Amount:          breakdown.Total,
		Currency:        defaultCurrency,
		CustomerEmail:   req.Email,
		Status:          models.PaymentStatusCreated,
	}
	if err := s.repo.CreatePayment(ctx, row); err != nil {
		return nil, fmt.Errorf("error recording payment: %w", err)
	}

	return &models.PaymentLinkResponse{
		Status:    "success",
		URL:       sess.URL,
		SessionID: sess.ID,
		Amount:    breakdown.Total,
		Currency:  defaultCurrency,
	}, nil
}

// SendPaymentLink emails the payment link, then moves the formality to
// pending_payment. A failed send leaves the status untouched.
func (s *DefaultService) SendPaymentLink(ctx context.Context, userID string, formalityID int64, req models.SendPaymentLinkRequest) error {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return err
	}

	row, err := s.repo.GetPaymentBySessionID(ctx, req.SessionID)
	if err != nil {
		return fmt.Errorf("error getting payment: %w", err)
	}
	if row == nil || row.FormalityID != formalityID {
		return ErrPaymentNotFound
	}

	n := notification.Notification{
		Recipients:  []string{req.Email},
		Subject:     fmt.Sprintf("Paiement de votre formalité : %s", formality.CompanyName),
		Message:     fmt.Sprintf("Votre formalité « %s » est prête. Merci de procéder au règlement pour lancer son traitement.", formality.Type),
		Kind:        notification.KindPaymentLink,
		ActionURL:   row.URL,
		ActionLabel: "Payer en ligne",
		CompanyName: formality.CompanyName,
		Meta: notification.Meta{
			Amount:   row.Amount,
			Currency: row.Currency,
		},
	}

	if _, err := s.notifier.Send(ctx, n); err != nil {
		return fmt.Errorf("error sending payment email: %w", err)
	}

	action := fmt.Sprintf("Statut changé de %q à %q.",
		formality.Status.Label(), models.StatusPendingPayment.Label())
	if err := s.repo.UpdateFormalityStatus(ctx, formalityID, models.StatusPendingPayment, action, &userID); err != nil {
		return fmt.Errorf("error updating status: %w", err)
	}

	return nil
}

// CreateCheckoutSession is the standalone checkout endpoint used by the
// front-end payment page. It accepts either a structured price breakdown or a
// flat amount.
func (s *DefaultService) CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionRequest) (*models.CheckoutSessionResponse, error) {
	if req.FormalityID == 0 {
		return nil, ErrMissingFormalityID
	}

	items, err := payment.BuildLineItems(req.FormalityPrices, req.Amount, req.PriceID, req.Currency)
	if err != nil {
		if errors.Is(err, payment.ErrNoUsableLineItem) {
			return nil, ErrInvalidPrice
		}
		return nil, err
	}

	successPath := req.SuccessPath
	if successPath == "" {
		successPath = "/paiement/succes"
	}
	cancelPath := req.CancelPath
	if cancelPath == "" {
		cancelPath = "/paiement/annule"
	}

	sess, err := s.gateway.CreateSession(ctx, payment.SessionParams{
		FormalityID:   req.FormalityID,
		LineItems:     items,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    payment.WithSessionPlaceholder(s.publicBaseURL + successPath),
		CancelURL:     s.publicBaseURL + cancelPath,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	amount := sess.AmountTotal
	if amount == 0 {
		amount = req.Amount
	}

	row := &models.Payment{
		FormalityID:     req.FormalityID,
		StripeSessionID: sess.ID,
		URL:             sess.URL,
		Amount:          amount,
		Currency:        currency,
		CustomerEmail:   req.CustomerEmail,
		Status:          models.PaymentStatusCreated,
	}
	if err := s.repo.CreatePayment(ctx, row); err != nil {
		return nil, fmt.Errorf("error recording payment: %w", err)
	}

	return &models.CheckoutSessionResponse{
		URL:       sess.URL,
		SessionID: sess.ID,
	}, nil
}

// HandleCheckoutCompleted applies a verified completed-session event: the
// payment row becomes "paid", the formality moves to formalist_processing.
// The follow-up notification is best-effort; its failure never fails the
// webhook response.
func (s *DefaultService) HandleCheckoutCompleted(ctx context.Context, completed *payment.CheckoutCompleted) error {
	row, err := s.repo.GetPaymentBySessionID(ctx, completed.SessionID)
	if err != nil {
		return fmt.Errorf("error getting payment: %w", err)
	}
	if row == nil {
		return ErrPaymentNotFound
	}

	var intentID *string
	if completed.PaymentIntentID != "" {
		intentID = &completed.PaymentIntentID
	}
	if err := s.repo.UpdatePaymentStatus(ctx, completed.SessionID, models.PaymentStatusPaid, intentID); err != nil {
		return fmt.Errorf("error updating payment: %w", err)
	}

	formality, err := s.repo.GetFormality(ctx, row.FormalityID)
	if err != nil {
		return fmt.Errorf("error getting formality: %w", err)
	}
	if formality == nil {
		return ErrFormalityNotFound
	}

	oldStatus := formality.Status
	action := fmt.Sprintf("Statut changé de %q à %q.",
		oldStatus.Label(), models.StatusFormalistProcessing.Label())
	if err := s.repo.UpdateFormalityStatus(ctx, formality.ID, models.StatusFormalistProcessing, action, nil); err != nil {
		return fmt.Errorf("error updating status: %w", err)
	}
	formality.Status = models.StatusFormalistProcessing

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		s.logger.Error("failed to load formality %d for payment notification: %v", formality.ID, err)
		return nil
	}

	s.notifyParticipants(ctx, detail, "", notification.Notification{
		Subject:     fmt.Sprintf("Paiement reçu : %s", formality.CompanyName),
		Message:     "Le paiement de votre formalité a bien été reçu. Son traitement commence.",
		Kind:        notification.KindStatusChange,
		CompanyName: formality.CompanyName,
		Meta: notification.Meta{
			OldStatus: oldStatus.Label(),
			NewStatus: models.StatusFormalistProcessing.Label(),
		},
	})

	return nil
}
