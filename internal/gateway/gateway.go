// Package gateway is the only code that talks to the external payment
// processor. Every call is a single blocking request; failures come back as
// *Error.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/GiorgiUbiria/textng_payments/internal/money"
)

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error)
	CreateCustomer(ctx context.Context, email string) (string, error)
	CreateConnectAccount(ctx context.Context, req ConnectAccountRequest) (string, error)
	CreateOnboardingLink(ctx context.Context, connectRef string) (string, error)
	CreateLoginLink(ctx context.Context, connectRef string) (string, error)
	RetrieveAccount(ctx context.Context, connectRef string) (*AccountStatus, error)
	RetrieveBalance(ctx context.Context, connectRef string) (*Balance, error)
	Transfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	Payout(ctx context.Context, req PayoutRequest) (*Payout, error)
}

type ChargeRequest struct {
	Amount         money.Amount
	Source         string
	CustomerRef    string
	Description    string
	IdempotencyKey string
}

type Charge struct {
	ID                   string       `json:"id"`
	Amount               money.Amount `json:"amount"`
	Currency             string       `json:"currency"`
	BalanceTransactionID string       `json:"balance_transaction"`
	Status               string       `json:"status"`
}

type IntentRequest struct {
	Amount      money.Amount
	Description string
}

type PaymentIntent struct {
	ID           string       `json:"id"`
	Amount       money.Amount `json:"amount"`
	Currency     string       `json:"currency"`
	ClientSecret string       `json:"client_secret"`
	Status       string       `json:"status"`
}

type ConnectAccountRequest struct {
	Email string
}

type AccountStatus struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DisabledReason   string `json:"disabled_reason,omitempty"`
}

// Verified reports whether the account may take part in money movement.
func (a *AccountStatus) Verified() bool {
	return a.DetailsSubmitted && a.DisabledReason == ""
}

type Balance struct {
	Available        money.Amount `json:"available"`
	InstantAvailable money.Amount `json:"instant_available"`
	Currency         string       `json:"currency"`
}

type TransferRequest struct {
	Amount         money.Amount
	DestinationRef string
	IdempotencyKey string
}

type Transfer struct {
	ID          string       `json:"id"`
	Amount      money.Amount `json:"amount"`
	Destination string       `json:"destination"`
}

type PayoutRequest struct {
	Amount         money.Amount
	ConnectRef     string
	IdempotencyKey string
}

type Payout struct {
	ID                   string       `json:"id"`
	Amount               money.Amount `json:"amount"`
	BalanceTransactionID string       `json:"balance_transaction"`
	Status               string       `json:"status"`
}

// Error is a failed gateway call.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("gateway %s (%s): %s", e.Type, e.Code, e.Message)
}

const (
	TypeCard           = "card_error"
	TypeInvalidRequest = "invalid_request_error"
	TypeAPI            = "api_error"
	TypeConnection     = "api_connection_error"
)

// AsError extracts the gateway error from err, if any.
func AsError(err error) (*Error, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}
