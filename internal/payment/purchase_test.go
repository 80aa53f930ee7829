package payment

import (
	"testing"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/gateway/gatewaytest"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeThemeRecordsPaymentAndOwnership(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "")
	card := fx.card(t, u)
	theme := fx.theme(t, "2.99")

	res, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{CardID: card.ID})
	require.NoError(t, err)

	assert.Equal(t, "Theme purchased successfully!", res.Message)
	assert.Equal(t, money.Amount(299), res.Payment.Amount)
	assert.Equal(t, models.ThemePayable(theme.ID), res.Payment.Payable())
	assert.Equal(t, models.SourceCard, res.Payment.SourceType)

	require.Len(t, fx.gw.Charges, 1)
	assert.Equal(t, "tok_visa", fx.gw.Charges[0].Source)
	assert.Equal(t, u.GatewayCustomerRef, fx.gw.Charges[0].CustomerRef)

	owned, err := fx.st.UserThemeExists(fx.ctx, u.ID, theme.ID)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestChargeThemeTwiceRejected(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	theme := fx.theme(t, "2.99")

	_, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})
	require.NoError(t, err)

	_, err = fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})
	requireValidation(t, err, "User has already bought this theme!")

	assert.Equal(t, 1, fx.gw.CallCount("charge"))
	assert.EqualValues(t, 1, fx.count(t, &models.Payment{}))
	assert.EqualValues(t, 1, fx.count(t, &models.UserTheme{}))
}

func TestChargeThemeFallsBackToConnectSource(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	theme := fx.theme(t, "1.00")

	res, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})
	require.NoError(t, err)
	assert.Equal(t, models.SourceConnect, res.Payment.SourceType)
	assert.Equal(t, "acct_a", fx.gw.Charges[0].Source)
}

func TestChargeThemeRejectsBeforeGateway(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "")
	other := fx.user(t, "b@test.com", "5550002", "")
	otherCard := fx.card(t, other)
	theme := fx.theme(t, "2.99")

	_, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})
	requireValidation(t, err, "Invalid source provided!")

	_, err = fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{CardID: otherCard.ID})
	requireValidation(t, err, "Invalid source provided!")

	_, err = fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{BankID: 99})
	requireValidation(t, err, "Invalid source provided!")

	own := fx.card(t, u)
	_, err = fx.purchases.ChargeTheme(fx.ctx, u, 999, SourceSelector{CardID: own.ID})
	requireValidation(t, err, "Please provide a valid theme ID!")

	assert.Zero(t, fx.gw.TotalCalls())
}

func TestChargeThemeGatewayErrorWritesNothing(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	theme := fx.theme(t, "2.99")
	fx.gw.ChargeFunc = func(gateway.ChargeRequest) (*gateway.Charge, error) { return nil, gatewaytest.CardDeclined() }

	_, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})
	gerr, ok := gateway.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "card_declined", gerr.Code)

	assert.Zero(t, fx.count(t, &models.Payment{}))
	assert.Zero(t, fx.count(t, &models.UserTheme{}))
}

func TestChargeThemeOwnershipFailureReported(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	theme := fx.theme(t, "2.99")
	fx.failCreate(t, "user_themes")

	_, err := fx.purchases.ChargeTheme(fx.ctx, u, theme.ID, SourceSelector{})

	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Failed to purchase theme!", cerr.Message)
	assert.Equal(t, "ch_1", cerr.Reference)
	assert.Equal(t, StageLedgered, cerr.Stage)
	// the charge stands and the payment row is not rolled back
	assert.Equal(t, 1, fx.gw.CallCount("charge"))
	assert.EqualValues(t, 1, fx.count(t, &models.Payment{}))
	assert.Zero(t, fx.count(t, &models.UserTheme{}))
}

func TestChargeBurnNumber(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "")
	card := fx.card(t, u)

	res, err := fx.purchases.ChargeBurnNumber(fx.ctx, u, BurnRequest{
		NewNumber: "5550002",
		Price:     money.MustParse("4.99"),
		Source:    SourceSelector{CardID: card.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "5550001", res.BurnNumber.BurnNumber)
	assert.Equal(t, models.BurnNumberPayable(res.BurnNumber.ID), res.Payment.Payable())
	assert.Equal(t, money.Amount(499), res.Payment.Amount)
	assert.Equal(t, money.Amount(499), fx.gw.Charges[0].Amount)

	reloaded, err := fx.st.FindUser(fx.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "5550002", reloaded.Number)
	require.NotNil(t, reloaded.NumberAssignedAt)

	var bn models.BurnNumber
	require.NoError(t, fx.db.First(&bn, res.BurnNumber.ID).Error)
	require.NotNil(t, bn.BoughtLast)
	assert.True(t, bn.BoughtLast.Equal(*reloaded.NumberAssignedAt))

	assert.EqualValues(t, 1, fx.count(t, &models.Notification{}))
}

func TestChargeBurnNumberGuards(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	other := fx.user(t, "b@test.com", "5550009", "")

	_, err := fx.purchases.ChargeBurnNumber(fx.ctx, u, BurnRequest{NewNumber: "5550001", Price: 100})
	requireValidation(t, err, "This number is already assigned!")

	_, err = fx.st.CreateBurnNumber(fx.ctx, other.ID, "5550001")
	require.NoError(t, err)
	_, err = fx.purchases.ChargeBurnNumber(fx.ctx, u, BurnRequest{NewNumber: "5550003", Price: 100})
	requireValidation(t, err, "This number has already been burned!")

	_, err = fx.purchases.ChargeBurnNumber(fx.ctx, u, BurnRequest{NewNumber: "", Price: 100})
	requireValidation(t, err, "Please provide a new number!")

	assert.Zero(t, fx.gw.TotalCalls())
}

func TestChargeBurnNumberLocalFailureRollsBack(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "acct_a")
	fx.failCreate(t, "payments")

	_, err := fx.purchases.ChargeBurnNumber(fx.ctx, u, BurnRequest{NewNumber: "5550002", Price: 100})

	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ch_1", cerr.Reference)
	assert.Equal(t, StageMoneyMoved, cerr.Stage)
	assert.Equal(t, 1, fx.gw.CallCount("charge"))

	assert.Zero(t, fx.count(t, &models.BurnNumber{}))
	assert.Zero(t, fx.count(t, &models.Payment{}))
	assert.Zero(t, fx.count(t, &models.Notification{}))

	reloaded, err := fx.st.FindUser(fx.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "5550001", reloaded.Number)
	assert.Nil(t, reloaded.NumberAssignedAt)
	assert.Equal(t, "5550001", u.Number)
}

func TestIntentTheme(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "")
	theme := fx.theme(t, "2.99")

	res, err := fx.purchases.IntentTheme(fx.ctx, u, PlatformApple, theme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Theme purchased successfully!", res.Message)
	assert.Equal(t, money.Amount(299), res.Intent.Amount)
	assert.Equal(t, models.SourceApplePay, res.Payment.SourceType)

	_, err = fx.purchases.IntentTheme(fx.ctx, u, PlatformGoogle, theme.ID)
	requireValidation(t, err, "Theme has already been purchased!")

	_, err = fx.purchases.IntentTheme(fx.ctx, u, PlatformGoogle, 404)
	verr := requireValidation(t, err, "Theme not found!")
	assert.True(t, verr.NotFound)

	assert.Equal(t, 1, fx.gw.CallCount("intent"))
}

func TestIntentBurnNumber(t *testing.T) {
	fx := setup(t)
	u := fx.user(t, "a@test.com", "5550001", "")

	res, err := fx.purchases.IntentBurnNumber(fx.ctx, u, PlatformGoogle, "5550002", 250)
	require.NoError(t, err)
	assert.Equal(t, models.SourceGooglePay, res.Payment.SourceType)
	assert.Equal(t, models.PayableBurnNumber, res.Payment.PayableType)
	assert.Equal(t, "5550002", u.Number)

	burned, err := fx.st.NumberBurned(fx.ctx, "5550001")
	require.NoError(t, err)
	assert.True(t, burned)
}

func TestIntentBurnNumberGuards(t *testing.T) {
	fx := setup(t)
	nobody := fx.user(t, "n@test.com", "", "")
	u := fx.user(t, "a@test.com", "5550001", "")

	_, err := fx.purchases.IntentBurnNumber(fx.ctx, nobody, PlatformApple, "5550002", 250)
	verr := requireValidation(t, err, "BurnNumber not found!")
	assert.True(t, verr.NotFound)

	_, err = fx.purchases.IntentBurnNumber(fx.ctx, u, PlatformApple, "5550001", 250)
	requireValidation(t, err, "This number is already assigned!")

	_, err = fx.st.CreateBurnNumber(fx.ctx, u.ID, "5550001")
	require.NoError(t, err)
	_, err = fx.purchases.IntentBurnNumber(fx.ctx, u, PlatformApple, "5550002", 250)
	requireValidation(t, err, "BurnNumber has already been purchased!")

	assert.Zero(t, fx.gw.TotalCalls())
}
