package payment

import (
	"context"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Connect manages the user's connect account: the gateway sub-account that
// lets them receive funds.
type Connect struct {
	store *store.Store
	gw    gateway.Gateway
}

func NewConnect(st *store.Store, gw gateway.Gateway) *Connect {
	return &Connect{store: st, gw: gw}
}

type ConnectResult struct {
	User *models.User `json:"user"`
	Link string       `json:"link"`
}

type BalanceSummary struct {
	Balance  decimal.Decimal `json:"balance" swaggertype:"string" example:"12.34"`
	Currency string          `json:"currency"`
}

// Connect creates the user's connect account when missing and always returns
// a fresh onboarding link for it.
func (c *Connect) Connect(ctx context.Context, u *models.User) (*ConnectResult, error) {
	if !u.HasConnect() {
		ref, err := c.gw.CreateConnectAccount(ctx, gateway.ConnectAccountRequest{Email: u.Email})
		if err != nil {
			return nil, err
		}
		set, err := c.store.SetConnectRef(ctx, u.ID, ref)
		if err != nil {
			return nil, err
		}
		if set {
			u.GatewayConnectRef = &ref
			logger.Log.Info("connect account created", zap.Uint("user_id", u.ID), zap.String("connect_ref", ref))
		} else {
			// A concurrent request stored its account first; ref is orphaned at the gateway.
			logger.Log.Warn("connect account already set, discarding new one",
				zap.Uint("user_id", u.ID), zap.String("orphan_ref", ref))
			fresh, err := c.store.FindUser(ctx, u.ID)
			if err != nil {
				return nil, err
			}
			u.GatewayConnectRef = fresh.GatewayConnectRef
		}
	}

	link, err := c.gw.CreateOnboardingLink(ctx, u.ConnectRef())
	if err != nil {
		return nil, err
	}
	return &ConnectResult{User: u, Link: link}, nil
}

// Balance returns the available connect balance in major units.
func (c *Connect) Balance(ctx context.Context, u *models.User) (*BalanceSummary, error) {
	if err := requireAccount(u); err != nil {
		return nil, err
	}
	b, err := c.gw.RetrieveBalance(ctx, u.ConnectRef())
	if err != nil {
		return nil, err
	}
	return &BalanceSummary{Balance: b.Available.Decimal(), Currency: b.Currency}, nil
}

func (c *Connect) LoginLink(ctx context.Context, u *models.User) (string, error) {
	if err := requireAccount(u); err != nil {
		return "", err
	}
	return c.gw.CreateLoginLink(ctx, u.ConnectRef())
}

func (c *Connect) Retrieve(ctx context.Context, u *models.User) (*gateway.AccountStatus, error) {
	if err := requireAccount(u); err != nil {
		return nil, err
	}
	return c.gw.RetrieveAccount(ctx, u.ConnectRef())
}

// RequireVerified gates money movement on a fully onboarded, enabled account.
func (c *Connect) RequireVerified(ctx context.Context, u *models.User) error {
	if err := requireAccount(u); err != nil {
		return err
	}
	acct, err := c.gw.RetrieveAccount(ctx, u.ConnectRef())
	if err != nil {
		return err
	}
	if !acct.Verified() {
		return invalid("Verify your Stripe Connect details first")
	}
	return nil
}

func requireAccount(u *models.User) error {
	if !u.HasConnect() {
		return invalid("Please create a Stripe account first")
	}
	return nil
}
