package booking

import (
	"context"
	"fmt"
	"math"

	"luxride/models"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
)

// PaymentLinker turns a confirmed booking into a payment link for the
// confirmation message. Settlement itself is an external concern.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, session *models.BookingSession, confirmationID string) (string, error)
}

// StripePaymentLinker creates a Stripe Checkout session per confirmed
// booking. The global stripe.Key is set in main.
type StripePaymentLinker struct {
	SuccessURL string
	CancelURL  string
}

func (p *StripePaymentLinker) CreatePaymentLink(ctx context.Context, s *models.BookingSession, confirmationID string) (string, error) {
	if s.Pricing == nil {
		return "", fmt.Errorf("booking %s has no fare to charge", s.BookingID)
	}

	amount := int64(math.Round(s.Pricing.Total * 100))
	name := fmt.Sprintf("Chauffeur booking %s", confirmationID)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.Pricing.Currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(s.BookingID),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
	}
	params.Context = ctx

	cs, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return cs.URL, nil
}
