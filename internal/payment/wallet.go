package payment

import (
	"context"
	"errors"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Wallet moves money in and out of the user's connect balance. Every flow goes
// Idle -> FundsChecked -> ExternalMoneyMoved -> Ledgered -> Done and stops at
// the first failure. Completed gateway calls are never compensated; a ledger
// write failing after money moved surfaces as *ConsistencyError.
type Wallet struct {
	store         *store.Store
	gw            gateway.Gateway
	connect       *Connect
	serviceCharge string
}

func NewWallet(st *store.Store, gw gateway.Gateway, connect *Connect, serviceCharge string) *Wallet {
	return &Wallet{store: st, gw: gw, connect: connect, serviceCharge: serviceCharge}
}

// TopUp charges a saved card and moves the same amount into the user's
// connect balance.
func (w *Wallet) TopUp(ctx context.Context, u *models.User, cardID uint, amount money.Amount) (*Receipt, error) {
	if err := w.connect.RequireVerified(ctx, u); err != nil {
		return nil, err
	}
	card, err := w.store.FindCard(ctx, u.ID, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("Card not present")
	}
	if err != nil {
		return nil, err
	}

	f := newFlow("topup", u.ID, store.NewTransactionNumber())
	f.advance(StageFundsChecked)

	charge, err := w.gw.Charge(ctx, gateway.ChargeRequest{
		Amount:         amount,
		Source:         card.Token,
		CustomerRef:    u.GatewayCustomerRef,
		Description:    "Wallet top up",
		IdempotencyKey: f.number + "-charge",
	})
	if err != nil {
		return nil, err
	}
	f.moved(charge.ID)

	if _, err := w.gw.Transfer(ctx, gateway.TransferRequest{
		Amount:         amount,
		DestinationRef: u.ConnectRef(),
		IdempotencyKey: f.number + "-transfer",
	}); err != nil {
		return nil, f.inconsistent("Top up Not Successful", err)
	}

	if err := w.record(ctx, f, u, models.MethodTopUp, amount, models.SourceCard, charge.ID); err != nil {
		return nil, err
	}

	return &Receipt{
		Message:           "Top up Successful",
		Amount:            amount.Decimal(),
		Method:            models.SourceCard,
		Currency:          charge.Currency,
		TransactionNumber: f.number,
		TransactionID:     charge.BalanceTransactionID,
		WalletBalance:     w.walletBalance(ctx, u),
		Card:              summarizeCard(card),
	}, nil
}

// Transfer moves funds from the user's connect balance to a contact's
// verified connect account. Only the sender gets a ledger row.
func (w *Wallet) Transfer(ctx context.Context, u *models.User, contactID uint, amount money.Amount) (*Receipt, error) {
	if err := w.connect.RequireVerified(ctx, u); err != nil {
		return nil, err
	}
	f := newFlow("transfer", u.ID, store.NewTransactionNumber())
	if err := w.requireFunds(ctx, f, u, amount); err != nil {
		return nil, err
	}

	contact, receiver, err := w.receiver(ctx, u, contactID)
	if err != nil {
		return nil, err
	}

	charge, err := w.gw.Charge(ctx, gateway.ChargeRequest{
		Amount:         amount,
		Source:         u.ConnectRef(),
		CustomerRef:    u.GatewayCustomerRef,
		Description:    "Wallet transfer",
		IdempotencyKey: f.number + "-charge",
	})
	if err != nil {
		return nil, err
	}
	f.moved(charge.ID)

	if _, err := w.gw.Transfer(ctx, gateway.TransferRequest{
		Amount:         amount,
		DestinationRef: receiver.ConnectRef(),
		IdempotencyKey: f.number + "-transfer",
	}); err != nil {
		return nil, f.inconsistent("Transfer Not Successful", err)
	}

	if err := w.record(ctx, f, u, models.MethodTransfer, amount, models.SourceConnect, charge.ID); err != nil {
		return nil, err
	}

	return &Receipt{
		Message:           "Transfer Successful",
		Amount:            amount.Decimal(),
		Method:            models.SourceConnect,
		Currency:          charge.Currency,
		TransactionNumber: f.number,
		TransactionID:     charge.BalanceTransactionID,
		WalletBalance:     w.walletBalance(ctx, u),
		ServiceCharge:     w.serviceCharge,
		TransferredTo:     contact.Name,
		ReceiverNumber:    receiver.Number,
	}, nil
}

// Withdraw pays the requested amount out of the connect balance to the
// user's external account. A failed payout is not retried.
func (w *Wallet) Withdraw(ctx context.Context, u *models.User, amount money.Amount) (*Receipt, error) {
	if err := w.connect.RequireVerified(ctx, u); err != nil {
		return nil, err
	}
	f := newFlow("withdraw", u.ID, store.NewTransactionNumber())
	if err := w.requireFunds(ctx, f, u, amount); err != nil {
		return nil, err
	}

	payout, err := w.gw.Payout(ctx, gateway.PayoutRequest{
		Amount:         amount,
		ConnectRef:     u.ConnectRef(),
		IdempotencyKey: f.number + "-payout",
	})
	if err != nil {
		return nil, err
	}
	f.moved(payout.ID)

	if err := w.record(ctx, f, u, models.MethodWithdraw, amount, models.SourceBank, payout.ID); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Message:           "Withdraw Successful",
		Amount:            amount.Decimal(),
		Method:            models.SourceBank,
		TransactionNumber: f.number,
		TransactionID:     payout.BalanceTransactionID,
		WalletBalance:     w.walletBalance(ctx, u),
	}
	if card, err := w.store.FirstCard(ctx, u.ID); err == nil {
		receipt.Card = summarizeCard(card)
	}
	return receipt, nil
}

// History returns payments and transactions newest first, or ErrNoHistory.
func (w *Wallet) History(ctx context.Context, u *models.User) ([]store.HistoryEntry, error) {
	entries, err := w.store.History(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoHistory
	}
	return entries, nil
}

// requireFunds compares in minor units so the boundary is exact: an amount
// equal to the instantly available balance passes.
func (w *Wallet) requireFunds(ctx context.Context, f *flow, u *models.User, amount money.Amount) error {
	b, err := w.gw.RetrieveBalance(ctx, u.ConnectRef())
	if err != nil {
		return err
	}
	if amount > b.InstantAvailable {
		return invalid("Insufficient Funds")
	}
	f.advance(StageFundsChecked)
	return nil
}

func (w *Wallet) receiver(ctx context.Context, u *models.User, contactID uint) (*models.Contact, *models.User, error) {
	contact, err := w.store.FindContact(ctx, u.ID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, invalid("Receiver User not found")
	}
	if err != nil {
		return nil, nil, err
	}
	receiver, err := w.store.FindUser(ctx, contact.CompanionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, invalid("Receiver User not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if !receiver.HasConnect() {
		return nil, nil, invalid("Receiver's Stripe Connect Account Doesn't exist")
	}
	acct, err := w.gw.RetrieveAccount(ctx, receiver.ConnectRef())
	if err != nil {
		return nil, nil, err
	}
	if !acct.DetailsSubmitted {
		return nil, nil, invalid("Receiver User Stripe Connect not verified")
	}
	return contact, receiver, nil
}

func (w *Wallet) record(ctx context.Context, f *flow, u *models.User, method models.TransactionMethod, amount money.Amount, source models.SourceType, ref string) error {
	tx := &models.Transaction{
		UserID:            u.ID,
		TransactionNumber: f.number,
		Method:            method,
		Amount:            amount,
		SourceType:        source,
		GatewayRef:        ref,
	}
	if err := w.store.CreateTransaction(ctx, tx); err != nil {
		return f.inconsistent(string(method)+" Not Successful", err)
	}
	f.advance(StageLedgered)
	logger.Log.Info("wallet movement recorded",
		zap.String("method", string(method)),
		zap.Uint("user_id", u.ID),
		zap.String("transaction_no", f.number),
		zap.Int64("amount", amount.Minor()),
		zap.String("gateway_ref", ref),
	)
	f.advance(StageDone)
	return nil
}

// walletBalance is informational; a failure here does not undo the operation.
func (w *Wallet) walletBalance(ctx context.Context, u *models.User) *decimal.Decimal {
	b, err := w.gw.RetrieveBalance(ctx, u.ConnectRef())
	if err != nil {
		logger.Log.Warn("balance refresh failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return nil
	}
	d := b.Available.Decimal()
	return &d
}
