package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"AvatarElite/core"
	"AvatarElite/lib/sl"
)

var ErrNotConfigured = errors.New("stripe is not configured")

// CompletedPayment is what a verified checkout.session.completed event
// boils down to for the ledger.
type CompletedPayment struct {
	UserId  int64
	Credits int
}

// Service creates checkout links and turns verified webhook events into
// credit grants. The user id travels in the session metadata.
type Service struct {
	log           *slog.Logger
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewService(conf *core.Config, log *slog.Logger) *Service {
	stripe.Key = conf.Stripe.SecretKey
	return &Service{
		log:           log.With(sl.Module("payment")),
		secretKey:     conf.Stripe.SecretKey,
		webhookSecret: conf.Stripe.WebhookSecret,
		successURL:    conf.Stripe.SuccessURL,
		cancelURL:     conf.Stripe.CancelURL,
	}
}

// CreateCheckoutSession returns a payment link for one credit pack.
func (s *Service) CreateCheckoutSession(userId int64, packId string) (string, error) {
	if s.secretKey == "" {
		return "", ErrNotConfigured
	}

	pack, ok := PackById(packId)
	if !ok {
		return "", fmt.Errorf("invalid pack selected: %s", packId)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(pack.Name),
					},
					UnitAmount: stripe.Int64(pack.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.AddMetadata("telegram_id", strconv.FormatInt(userId, 10))
	params.AddMetadata("credits", strconv.Itoa(pack.Credits))

	checkout, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	s.log.With(
		sl.User(userId),
		slog.String("pack", pack.Id),
	).Info("checkout session created")
	return checkout.URL, nil
}

// HandleWebhook verifies the event signature and extracts the completed
// payment, if any. A nil result with nil error means the event was valid
// but not one we act on.
func (s *Service) HandleWebhook(payload []byte, signature string) (*CompletedPayment, error) {
	if s.secretKey == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var checkout stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
		return nil, fmt.Errorf("parsing checkout session: %w", err)
	}

	userId, err := strconv.ParseInt(checkout.Metadata["telegram_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("missing telegram_id in session %s", checkout.ID)
	}
	credits, err := strconv.Atoi(checkout.Metadata["credits"])
	if err != nil || credits <= 0 {
		return nil, fmt.Errorf("missing credits in session %s", checkout.ID)
	}

	s.log.With(
		sl.User(userId),
		slog.Int("credits", credits),
	).Info("payment completed")
	return &CompletedPayment{UserId: userId, Credits: credits}, nil
}
