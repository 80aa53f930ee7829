// Package gatewaytest provides a programmable in-memory gateway.Gateway.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
)

// Fake records every call. A non-nil XxxFunc replaces the default behaviour
// of the matching operation.
type Fake struct {
	mu    sync.Mutex
	seq   int
	Calls map[string]int

	Accounts map[string]*gateway.AccountStatus
	Balances map[string]*gateway.Balance

	Charges   []gateway.ChargeRequest
	Intents   []gateway.IntentRequest
	Transfers []gateway.TransferRequest
	Payouts   []gateway.PayoutRequest

	ChargeFunc   func(req gateway.ChargeRequest) (*gateway.Charge, error)
	IntentFunc   func(req gateway.IntentRequest) (*gateway.PaymentIntent, error)
	AccountFunc  func(req gateway.ConnectAccountRequest) (string, error)
	LinkFunc     func(connectRef string) (string, error)
	TransferFunc func(req gateway.TransferRequest) (*gateway.Transfer, error)
	PayoutFunc   func(req gateway.PayoutRequest) (*gateway.Payout, error)
	BalanceFunc  func(connectRef string) (*gateway.Balance, error)
}

func NewFake() *Fake {
	return &Fake{
		Calls:    map[string]int{},
		Accounts: map[string]*gateway.AccountStatus{},
		Balances: map[string]*gateway.Balance{},
	}
}

// CardDeclined is a typical gateway failure.
func CardDeclined() error {
	return &gateway.Error{Type: gateway.TypeCard, Code: "card_declined", Message: "Your card was declined."}
}

// Verify marks connectRef as a fully onboarded account.
func (f *Fake) Verify(connectRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[connectRef] = &gateway.AccountStatus{ID: connectRef, DetailsSubmitted: true, ChargesEnabled: true, PayoutsEnabled: true}
}

func (f *Fake) SetBalance(connectRef string, available, instant money.Amount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[connectRef] = &gateway.Balance{Available: available, InstantAvailable: instant, Currency: "usd"}
}

func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// TotalCalls counts every gateway call made so far.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		n += c
	}
	return n
}

func (f *Fake) next(op, prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *Fake) Charge(_ context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	id := f.next("charge", "ch")
	f.mu.Lock()
	f.Charges = append(f.Charges, req)
	fn := f.ChargeFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &gateway.Charge{ID: id, Amount: req.Amount, Currency: "usd", BalanceTransactionID: "txn_" + id, Status: "succeeded"}, nil
}

func (f *Fake) CreatePaymentIntent(_ context.Context, req gateway.IntentRequest) (*gateway.PaymentIntent, error) {
	id := f.next("intent", "pi")
	f.mu.Lock()
	f.Intents = append(f.Intents, req)
	fn := f.IntentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &gateway.PaymentIntent{ID: id, Amount: req.Amount, Currency: "usd", ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (f *Fake) CreateCustomer(_ context.Context, email string) (string, error) {
	return f.next("customer", "cus"), nil
}

func (f *Fake) CreateConnectAccount(_ context.Context, req gateway.ConnectAccountRequest) (string, error) {
	id := f.next("connect_account", "acct")
	if f.AccountFunc != nil {
		return f.AccountFunc(req)
	}
	f.mu.Lock()
	f.Accounts[id] = &gateway.AccountStatus{ID: id, Email: req.Email}
	f.mu.Unlock()
	return id, nil
}

func (f *Fake) CreateOnboardingLink(_ context.Context, connectRef string) (string, error) {
	f.next("onboarding_link", "link")
	if f.LinkFunc != nil {
		return f.LinkFunc(connectRef)
	}
	return "https://connect.example/onboarding/" + connectRef, nil
}

func (f *Fake) CreateLoginLink(_ context.Context, connectRef string) (string, error) {
	f.next("login_link", "link")
	if _, ok := f.account(connectRef); !ok {
		return "", &gateway.Error{Type: gateway.TypeInvalidRequest, Message: "No such account: " + connectRef}
	}
	return "https://connect.example/login/" + connectRef, nil
}

func (f *Fake) RetrieveAccount(_ context.Context, connectRef string) (*gateway.AccountStatus, error) {
	f.next("account", "acct")
	acct, ok := f.account(connectRef)
	if !ok {
		return nil, &gateway.Error{Type: gateway.TypeInvalidRequest, Message: "No such account: " + connectRef}
	}
	return acct, nil
}

func (f *Fake) account(connectRef string) (*gateway.AccountStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.Accounts[connectRef]
	if !ok {
		return nil, false
	}
	cp := *acct
	return &cp, true
}

func (f *Fake) RetrieveBalance(_ context.Context, connectRef string) (*gateway.Balance, error) {
	f.next("balance", "bal")
	if f.BalanceFunc != nil {
		return f.BalanceFunc(connectRef)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Balances[connectRef]
	if !ok {
		return &gateway.Balance{Currency: "usd"}, nil
	}
	cp := *b
	return &cp, nil
}

func (f *Fake) Transfer(_ context.Context, req gateway.TransferRequest) (*gateway.Transfer, error) {
	id := f.next("transfer", "tr")
	f.mu.Lock()
	f.Transfers = append(f.Transfers, req)
	fn := f.TransferFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &gateway.Transfer{ID: id, Amount: req.Amount, Destination: req.DestinationRef}, nil
}

// Payout debits the stored balance the way the real gateway would.
func (f *Fake) Payout(_ context.Context, req gateway.PayoutRequest) (*gateway.Payout, error) {
	id := f.next("payout", "po")
	f.mu.Lock()
	f.Payouts = append(f.Payouts, req)
	fn := f.PayoutFunc
	if fn == nil {
		if b, ok := f.Balances[req.ConnectRef]; ok {
			b.Available -= req.Amount
			b.InstantAvailable -= req.Amount
		}
	}
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &gateway.Payout{ID: id, Amount: req.Amount, BalanceTransactionID: "txn_" + id, Status: "pending"}, nil
}

var _ gateway.Gateway = (*Fake)(nil)
