package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"go.uber.org/zap"
)

// Purchases runs the one-shot theme and burn-number purchases.
type Purchases struct {
	store *store.Store
	gw    gateway.Gateway
	now   func() time.Time
}

func NewPurchases(st *store.Store, gw gateway.Gateway) *Purchases {
	return &Purchases{store: st, gw: gw, now: time.Now}
}

type Platform string

const (
	PlatformApple  Platform = "apple"
	PlatformGoogle Platform = "google"
)

func (p Platform) sourceType() models.SourceType {
	if p == PlatformGoogle {
		return models.SourceGooglePay
	}
	return models.SourceApplePay
}

type ThemePurchase struct {
	Message string          `json:"message"`
	Charge  *gateway.Charge `json:"charge"`
	Payment *models.Payment `json:"payment"`
}

type BurnRequest struct {
	NewNumber string
	Price     money.Amount
	Source    SourceSelector
}

type BurnPurchase struct {
	Charge     *gateway.Charge    `json:"charge"`
	Payment    *models.Payment    `json:"payment"`
	BurnNumber *models.BurnNumber `json:"-"`
}

type IntentPurchase struct {
	Message string                 `json:"message"`
	Intent  *gateway.PaymentIntent `json:"intent"`
	Payment *models.Payment        `json:"payment"`
}

// ChargeTheme charges the selected source for a theme the user does not own
// yet, then records the payment and the ownership row.
func (p *Purchases) ChargeTheme(ctx context.Context, u *models.User, themeID uint, sel SourceSelector) (*ThemePurchase, error) {
	src, err := resolveSource(ctx, p.store, u, sel)
	if err != nil {
		return nil, err
	}
	theme, err := p.ownableTheme(ctx, u, themeID, invalid("Please provide a valid theme ID!"), "User has already bought this theme!")
	if err != nil {
		return nil, err
	}

	charge, err := p.gw.Charge(ctx, gateway.ChargeRequest{
		Amount:      theme.Price,
		Source:      src.Ref,
		CustomerRef: u.GatewayCustomerRef,
		Description: "Theme charged successfully!",
	})
	if err != nil {
		return nil, err
	}

	f := newFlow("theme purchase", u.ID, "")
	f.moved(charge.ID)
	payment, err := p.recordTheme(ctx, f, u, theme, src.Type)
	if err != nil {
		return nil, err
	}
	return &ThemePurchase{Message: "Theme purchased successfully!", Charge: charge, Payment: payment}, nil
}

// ChargeBurnNumber retires the user's current number and assigns NewNumber.
// The four local writes commit together or not at all.
func (p *Purchases) ChargeBurnNumber(ctx context.Context, u *models.User, req BurnRequest) (*BurnPurchase, error) {
	src, err := resolveSource(ctx, p.store, u, req.Source)
	if err != nil {
		return nil, err
	}
	if err := p.burnable(ctx, u, req.NewNumber, "This number has already been burned!"); err != nil {
		return nil, err
	}

	charge, err := p.gw.Charge(ctx, gateway.ChargeRequest{
		Amount:      req.Price,
		Source:      src.Ref,
		CustomerRef: u.GatewayCustomerRef,
		Description: "Burn Number charged successfully!",
	})
	if err != nil {
		return nil, err
	}

	f := newFlow("burn number purchase", u.ID, "")
	f.moved(charge.ID)
	bn, payment, err := p.burn(ctx, u, req.NewNumber, req.Price, src.Type)
	if err != nil {
		return nil, f.inconsistent("Error during burn number creation", err)
	}
	f.advance(StageDone)
	p.notify(ctx, u, "TextNg Number Purchased", "TextNg Number has been purchased successfully.")
	return &BurnPurchase{Charge: charge, Payment: payment, BurnNumber: bn}, nil
}

// IntentTheme is the wallet-pay variant of ChargeTheme: a payment intent is
// created instead of a direct charge.
func (p *Purchases) IntentTheme(ctx context.Context, u *models.User, platform Platform, themeID uint) (*IntentPurchase, error) {
	theme, err := p.ownableTheme(ctx, u, themeID, notFound("Theme not found!"), "Theme has already been purchased!")
	if err != nil {
		return nil, err
	}

	intent, err := p.gw.CreatePaymentIntent(ctx, gateway.IntentRequest{
		Amount:      theme.Price,
		Description: fmt.Sprintf("%s pay: Theme", platform),
	})
	if err != nil {
		return nil, err
	}

	f := newFlow("theme intent purchase", u.ID, "")
	f.moved(intent.ID)
	payment, err := p.recordTheme(ctx, f, u, theme, platform.sourceType())
	if err != nil {
		return nil, err
	}
	p.notify(ctx, u, "Success Purchased", "Theme has been successfully purchased.")
	return &IntentPurchase{Message: "Theme purchased successfully!", Intent: intent, Payment: payment}, nil
}

// IntentBurnNumber is the wallet-pay variant of ChargeBurnNumber. The
// already-purchased guard keys off the user's current number.
func (p *Purchases) IntentBurnNumber(ctx context.Context, u *models.User, platform Platform, newNumber string, price money.Amount) (*IntentPurchase, error) {
	if u.Number == "" {
		return nil, notFound("BurnNumber not found!")
	}
	if err := p.burnable(ctx, u, newNumber, "BurnNumber has already been purchased!"); err != nil {
		return nil, err
	}

	intent, err := p.gw.CreatePaymentIntent(ctx, gateway.IntentRequest{
		Amount:      price,
		Description: fmt.Sprintf("%s pay: BurnNumber", platform),
	})
	if err != nil {
		return nil, err
	}

	f := newFlow("burn number intent purchase", u.ID, "")
	f.moved(intent.ID)
	_, payment, err := p.burn(ctx, u, newNumber, price, platform.sourceType())
	if err != nil {
		return nil, f.inconsistent("Error during burn number creation", err)
	}
	f.advance(StageDone)
	p.notify(ctx, u, "Success Purchased", "BurnNumber has been successfully purchased.")
	return &IntentPurchase{Message: "BurnNumber purchased successfully!", Intent: intent, Payment: payment}, nil
}

func (p *Purchases) ownableTheme(ctx context.Context, u *models.User, themeID uint, missing error, owned string) (*models.Theme, error) {
	theme, err := p.store.FindTheme(ctx, themeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, err
	}
	exists, err := p.store.UserThemeExists(ctx, u.ID, theme.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalid(owned)
	}
	return theme, nil
}

// recordTheme writes the payment and then the ownership row. The two writes
// are not atomic: a failed ownership insert leaves the payment in place and
// is reported as a consistency failure, with the charge not reversed.
func (p *Purchases) recordTheme(ctx context.Context, f *flow, u *models.User, theme *models.Theme, source models.SourceType) (*models.Payment, error) {
	payment := &models.Payment{
		UserID:      u.ID,
		PayableID:   theme.ID,
		PayableType: models.PayableTheme,
		Amount:      theme.Price,
		SourceType:  source,
	}
	if err := p.store.CreatePayment(ctx, payment); err != nil {
		return nil, f.inconsistent("Failed to purchase theme!", err)
	}
	f.advance(StageLedgered)
	if _, err := p.store.CreateUserTheme(ctx, u.ID, theme.ID); err != nil {
		return nil, f.inconsistent("Failed to purchase theme!", err)
	}
	f.advance(StageDone)
	logger.Log.Info("theme purchased",
		zap.Uint("user_id", u.ID),
		zap.Uint("theme_id", theme.ID),
		zap.String("gateway_ref", f.ref),
	)
	return payment, nil
}

func (p *Purchases) burnable(ctx context.Context, u *models.User, newNumber, burnedMsg string) error {
	if newNumber == "" {
		return invalid("Please provide a new number!")
	}
	if u.Number == "" {
		return invalid("No number is assigned to this user!")
	}
	if newNumber == u.Number {
		return invalid("This number is already assigned!")
	}
	burned, err := p.store.NumberBurned(ctx, u.Number)
	if err != nil {
		return err
	}
	if burned {
		return invalid(burnedMsg)
	}
	return nil
}

// burn records the old number as burned, reassigns the user, stamps the new
// assignment time on the burn record and writes the payment, in one database
// transaction.
func (p *Purchases) burn(ctx context.Context, u *models.User, newNumber string, price money.Amount, source models.SourceType) (*models.BurnNumber, *models.Payment, error) {
	oldNumber, oldAssigned := u.Number, u.NumberAssignedAt
	var (
		bn      *models.BurnNumber
		payment *models.Payment
	)
	err := p.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if bn, err = tx.CreateBurnNumber(ctx, u.ID, oldNumber); err != nil {
			return fmt.Errorf("record burned number: %w", err)
		}
		assigned := p.now()
		if err := tx.ReassignNumber(ctx, u, newNumber, assigned); err != nil {
			return fmt.Errorf("reassign number: %w", err)
		}
		if err := tx.StampBoughtLast(ctx, bn, assigned); err != nil {
			return fmt.Errorf("stamp burn record: %w", err)
		}
		payment = &models.Payment{
			UserID:      u.ID,
			PayableID:   bn.ID,
			PayableType: models.PayableBurnNumber,
			Amount:      price,
			SourceType:  source,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		return nil
	})
	if err != nil {
		u.Number, u.NumberAssignedAt = oldNumber, oldAssigned
		return nil, nil, err
	}
	logger.Log.Info("number burned",
		zap.Uint("user_id", u.ID),
		zap.String("burned", oldNumber),
		zap.String("assigned", newNumber),
	)
	return bn, payment, nil
}

func (p *Purchases) notify(ctx context.Context, u *models.User, title, description string) {
	if err := p.store.CreateNotification(ctx, u.ID, title, description); err != nil {
		logger.Log.Warn("failed to store notification", zap.Uint("user_id", u.ID), zap.Error(err))
	}
}
