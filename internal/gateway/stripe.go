package gateway

import (
	"context"
	"errors"

	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey  string
	Currency   string
	RefreshURL string
	ReturnURL  string
}

// Stripe implements Gateway on top of the Stripe API. Connect references are
// Stripe account ids and customer references are Stripe customer ids.
type Stripe struct {
	api *client.API
	cfg StripeConfig
}

func NewStripe(cfg StripeConfig) *Stripe {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	return &Stripe{api: client.New(cfg.SecretKey, nil), cfg: cfg}
}

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.Amount.Minor()),
		Currency:    stripe.String(s.cfg.Currency),
		Customer:    stripe.String(req.CustomerRef),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	if err := params.SetSource(req.Source); err != nil {
		return nil, &Error{Type: TypeInvalidRequest, Message: err.Error()}
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	ch, err := s.api.Charges.New(params)
	if err != nil {
		return nil, convertError("charge", err)
	}
	out := &Charge{
		ID:       ch.ID,
		Amount:   money.FromMinor(ch.Amount),
		Currency: string(ch.Currency),
		Status:   string(ch.Status),
	}
	if ch.BalanceTransaction != nil {
		out.BalanceTransactionID = ch.BalanceTransaction.ID
	}
	return out, nil
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount.Minor()),
		Currency:    stripe.String(s.cfg.Currency),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, convertError("payment intent", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		Amount:       money.FromMinor(pi.Amount),
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (s *Stripe) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx

	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", convertError("customer", err)
	}
	return c.ID, nil
}

func (s *Stripe) CreateConnectAccount(ctx context.Context, req ConnectAccountRequest) (string, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Email:        stripe.String(req.Email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx

	acct, err := s.api.Accounts.New(params)
	if err != nil {
		return "", convertError("connect account", err)
	}
	return acct.ID, nil
}

func (s *Stripe) CreateOnboardingLink(ctx context.Context, connectRef string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(connectRef),
		RefreshURL: stripe.String(s.cfg.RefreshURL),
		ReturnURL:  stripe.String(s.cfg.ReturnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", convertError("account link", err)
	}
	return link.URL, nil
}

func (s *Stripe) CreateLoginLink(ctx context.Context, connectRef string) (string, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(connectRef)}
	params.Context = ctx

	link, err := s.api.LoginLinks.New(params)
	if err != nil {
		return "", convertError("login link", err)
	}
	return link.URL, nil
}

func (s *Stripe) RetrieveAccount(ctx context.Context, connectRef string) (*AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := s.api.Accounts.GetByID(connectRef, params)
	if err != nil {
		return nil, convertError("account", err)
	}
	status := &AccountStatus{
		ID:               acct.ID,
		Email:            acct.Email,
		DetailsSubmitted: acct.DetailsSubmitted,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
	}
	if acct.Requirements != nil {
		status.DisabledReason = string(acct.Requirements.DisabledReason)
	}
	return status, nil
}

func (s *Stripe) RetrieveBalance(ctx context.Context, connectRef string) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(connectRef)

	b, err := s.api.Balance.Get(params)
	if err != nil {
		return nil, convertError("balance", err)
	}
	instant := make([]*stripe.Amount, 0, len(b.InstantAvailable))
	for _, a := range b.InstantAvailable {
		if a != nil {
			instant = append(instant, &stripe.Amount{Amount: a.Amount, Currency: a.Currency})
		}
	}
	return &Balance{
		Available:        pickAmount(b.Available, s.cfg.Currency),
		InstantAvailable: pickAmount(instant, s.cfg.Currency),
		Currency:         s.cfg.Currency,
	}, nil
}

func (s *Stripe) Transfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.Amount.Minor()),
		Currency:    stripe.String(s.cfg.Currency),
		Destination: stripe.String(req.DestinationRef),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	tr, err := s.api.Transfers.New(params)
	if err != nil {
		return nil, convertError("transfer", err)
	}
	return &Transfer{
		ID:          tr.ID,
		Amount:      money.FromMinor(tr.Amount),
		Destination: req.DestinationRef,
	}, nil
}

func (s *Stripe) Payout(ctx context.Context, req PayoutRequest) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(req.Amount.Minor()),
		Currency: stripe.String(s.cfg.Currency),
	}
	params.Context = ctx
	params.SetStripeAccount(req.ConnectRef)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	po, err := s.api.Payouts.New(params)
	if err != nil {
		return nil, convertError("payout", err)
	}
	out := &Payout{
		ID:     po.ID,
		Amount: money.FromMinor(po.Amount),
		Status: string(po.Status),
	}
	if po.BalanceTransaction != nil {
		out.BalanceTransactionID = po.BalanceTransaction.ID
	}
	return out, nil
}

// pickAmount returns the entry for currency, falling back to the first one.
func pickAmount(amounts []*stripe.Amount, currency string) money.Amount {
	for _, a := range amounts {
		if a != nil && string(a.Currency) == currency {
			return money.FromMinor(a.Amount)
		}
	}
	if len(amounts) > 0 && amounts[0] != nil {
		return money.FromMinor(amounts[0].Amount)
	}
	return 0
}

func convertError(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		logger.Log.Warn("stripe call failed",
			zap.String("op", op),
			zap.String("type", string(serr.Type)),
			zap.String("code", string(serr.Code)),
			zap.String("request_id", serr.RequestID),
		)
		return &Error{Type: string(serr.Type), Code: string(serr.Code), Message: serr.Msg}
	}
	logger.Log.Warn("stripe call failed", zap.String("op", op), zap.Error(err))
	return &Error{Type: TypeConnection, Message: err.Error()}
}
