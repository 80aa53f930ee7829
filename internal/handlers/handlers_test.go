package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GiorgiUbiria/textng_payments/configs"
	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/gateway/gatewaytest"
	"github.com/GiorgiUbiria/textng_payments/internal/handlers"
	"github.com/GiorgiUbiria/textng_payments/internal/idempotency"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
	"github.com/GiorgiUbiria/textng_payments/internal/routes"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/GiorgiUbiria/textng_payments/internal/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type api struct {
	db     *gorm.DB
	gw     *gatewaytest.Fake
	router *chi.Mux
}

func newAPI(t *testing.T) *api {
	t.Helper()
	configs.AppConfig.JWT.SECRET = testSecret

	db := storetest.Open(t)
	st := store.New(db)
	gw := gatewaytest.NewFake()
	connect := payment.NewConnect(st, gw)
	h := handlers.New(st, payment.NewPurchases(st, gw), payment.NewWallet(st, gw, connect, "3.00"), connect)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &api{db: db, gw: gw, router: routes.NewRoutes(h, idempotency.NewStore(rdb, time.Hour))}
}

func (a *api) user(t *testing.T, email, connectRef string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Name: email, Email: email, Password: string(hash), GatewayCustomerRef: "cus_" + email, Number: "5550001"}
	if connectRef != "" {
		u.GatewayConnectRef = &connectRef
		a.gw.Verify(connectRef)
	}
	require.NoError(t, a.db.Create(u).Error)
	return u
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *api) do(t *testing.T, method, path string, u *models.User, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, u.ID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req.WithContext(context.Background()))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLogin(t *testing.T) {
	a := newAPI(t)
	a.user(t, "a@test.com", "")

	rec := a.do(t, http.MethodPost, "/auth/login", nil, `{"email":"a@test.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodeBody(t, rec)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/transaction_history", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	hist := httptest.NewRecorder()
	a.router.ServeHTTP(hist, req)
	assert.Equal(t, http.StatusNoContent, hist.Code)

	rec = a.do(t, http.MethodPost, "/auth/login", nil, `{"email":"a@test.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/auth/login", nil, `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/api/v1/stripe_connect/balance_check", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost := &models.User{}
	ghost.ID = 999
	rec = a.do(t, http.MethodGet, "/api/v1/stripe_connect/balance_check", ghost, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChargeThemeEndpoint(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")
	theme := &models.Theme{Name: "Midnight", Price: money.MustParse("4.99")}
	require.NoError(t, a.db.Create(theme).Error)
	body := `{"theme_id":` + jsonUint(theme.ID) + `}`

	rec := a.do(t, http.MethodPost, "/api/v1/checkout/create_charge_for_theme", u, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, "Theme purchased successfully!", out["message"])
	assert.NotNil(t, out["charge"])
	assert.NotNil(t, out["payment"])

	rec = a.do(t, http.MethodPost, "/api/v1/checkout/create_charge_for_theme", u, body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User has already bought this theme!", decodeBody(t, rec)["message"])
}

func TestCheckoutStatusMapping(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")
	theme := &models.Theme{Name: "Midnight", Price: money.MustParse("4.99")}
	require.NoError(t, a.db.Create(theme).Error)

	rec := a.do(t, http.MethodPost, "/api/v1/checkout/apple_pay_theme", u, `{"theme_id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Theme not found!", decodeBody(t, rec)["message"])

	a.gw.ChargeFunc = func(gateway.ChargeRequest) (*gateway.Charge, error) { return nil, gatewaytest.CardDeclined() }
	rec = a.do(t, http.MethodPost, "/api/v1/checkout/create_charge_for_theme", u, `{"theme_id":`+jsonUint(theme.ID)+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Your card was declined.", decodeBody(t, rec)["message"])

	rec = a.do(t, http.MethodPost, "/api/v1/checkout/google_pay_burn_number", u, `{"new_number":"5550002","price":"abc"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConnectEndpoints(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "")

	rec := a.do(t, http.MethodGet, "/api/v1/stripe_connect/balance_check", u, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please create a Stripe account first", decodeBody(t, rec)["message"])

	a.gw.AccountFunc = func(gateway.ConnectAccountRequest) (string, error) {
		return "", &gateway.Error{Type: gateway.TypeInvalidRequest, Message: "platform not enabled"}
	}
	rec = a.do(t, http.MethodPost, "/api/v1/stripe_connect/connect", u, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "platform not enabled", decodeBody(t, rec)["error"])

	a.gw.AccountFunc = nil
	rec = a.do(t, http.MethodPost, "/api/v1/stripe_connect/connect", u, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Contains(t, out["link"], "onboarding")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(t, http.MethodGet, "/api/v1/stripe_connect/login_link", u, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["link"], "login")
}

func TestBalanceCheckMajorUnits(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")
	a.gw.SetBalance("acct_a", 1234, 1234)

	rec := a.do(t, http.MethodGet, "/api/v1/stripe_connect/balance_check", u, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":"12.34","currency":"usd"}`, rec.Body.String())
}

func TestTopUpEndpoint(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")
	card := &models.Card{UserID: u.ID, Token: "tok_visa", HolderName: "Jane Doe", Brand: "visa", Last4: "4242", ExpiryMonth: 4, ExpiryYear: 2030}
	require.NoError(t, a.db.Create(card).Error)
	body := `{"card_id":` + jsonUint(card.ID) + `,"amount":"10.50"}`

	rec := a.do(t, http.MethodPost, "/api/v1/transactions/topup", u, body, idempotency.Header, "retry-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, "Top up Successful", out["message"])
	assert.Equal(t, "10.5", out["amount"])
	assert.NotContains(t, rec.Body.String(), "tok_visa")

	replay := a.do(t, http.MethodPost, "/api/v1/transactions/topup", u, body, idempotency.Header, "retry-1")
	assert.Equal(t, rec.Body.String(), replay.Body.String())
	assert.Len(t, a.gw.Charges, 1)

	rec = a.do(t, http.MethodPost, "/api/v1/transactions/topup", u, `{"card_id":1,"amount":"-5"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWalletStatusMapping(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")
	a.gw.SetBalance("acct_a", 100, 100)

	rec := a.do(t, http.MethodPost, "/api/v1/transactions/withdraw", u, `{"amount":"1.01"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Insufficient Funds", decodeBody(t, rec)["message"])

	a.gw.PayoutFunc = func(gateway.PayoutRequest) (*gateway.Payout, error) {
		return nil, &gateway.Error{Type: gateway.TypeInvalidRequest, Message: "no external account"}
	}
	rec = a.do(t, http.MethodPost, "/api/v1/transactions/withdraw", u, `{"amount":"1.00"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no external account", decodeBody(t, rec)["message"])

	card := &models.Card{UserID: u.ID, Token: "tok_visa", Last4: "4242", ExpiryMonth: 4, ExpiryYear: 2030}
	require.NoError(t, a.db.Create(card).Error)
	a.gw.TransferFunc = func(gateway.TransferRequest) (*gateway.Transfer, error) {
		return nil, &gateway.Error{Type: gateway.TypeAPI, Message: "transfer failed"}
	}
	rec = a.do(t, http.MethodPost, "/api/v1/transactions/topup", u, `{"card_id":`+jsonUint(card.ID)+`,"amount":5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "Top up Not Successful", out["message"])
	assert.Equal(t, string(payment.StageMoneyMoved), out["stage"])
	assert.NotEmpty(t, out["reference"])
}

func TestTransactionHistoryEndpoint(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")

	rec := a.do(t, http.MethodGet, "/api/v1/transactions/transaction_history", u, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.NoError(t, a.db.Create(&models.Transaction{
		UserID: u.ID, TransactionNumber: "AHU1", Method: models.MethodTopUp, Amount: 500, SourceType: models.SourceCard,
	}).Error)
	rec = a.do(t, http.MethodGet, "/api/v1/transactions/transaction_history", u, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "transaction", entries[0]["kind"])
}

func TestTransferEndpoint(t *testing.T) {
	a := newAPI(t)
	sender := a.user(t, "a@test.com", "acct_a")
	receiver := a.user(t, "b@test.com", "acct_b")
	contact := &models.Contact{UserID: sender.ID, CompanionID: receiver.ID, Name: "Bob"}
	require.NoError(t, a.db.Create(contact).Error)
	a.gw.SetBalance("acct_a", 1000, 1000)

	rec := a.do(t, http.MethodPost, "/api/v1/transactions/transfer", sender, `{"receiver_id":`+jsonUint(contact.ID)+`,"amount":"7.25"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, "Transfer Successful", out["message"])
	assert.Equal(t, "7.25", out["amount"])
	assert.Equal(t, "Bob", out["transferred_to"])
	assert.Equal(t, "5550001", out["receiver_number"])
	assert.Equal(t, "3.00", out["service_charge"])

	require.Len(t, a.gw.Transfers, 1)
	assert.Equal(t, "acct_b", a.gw.Transfers[0].DestinationRef)
	assert.Equal(t, money.Amount(725), a.gw.Transfers[0].Amount)

	rec = a.do(t, http.MethodPost, "/api/v1/transactions/transfer", sender, `{"receiver_id":999,"amount":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Receiver User not found", decodeBody(t, rec)["message"])
}

func TestChargeBurnNumberEndpoint(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "acct_a")

	rec := a.do(t, http.MethodPost, "/api/v1/checkout/create_charge_for_burn_number", u, `{"new_number":"5550009","price":"2.50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.NotNil(t, out["charge"])
	pay := out["payment"].(map[string]any)
	assert.Equal(t, string(models.PayableBurnNumber), pay["payable_type"])
	assert.EqualValues(t, 250, pay["amount"])
	assert.Equal(t, string(models.SourceConnect), pay["source_type"])

	var reloaded models.User
	require.NoError(t, a.db.First(&reloaded, u.ID).Error)
	assert.Equal(t, "5550009", reloaded.Number)

	rec = a.do(t, http.MethodPost, "/api/v1/checkout/create_charge_for_burn_number", u, `{"new_number":"5550009","price":"2.50"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "This number is already assigned!", decodeBody(t, rec)["message"])
}

func TestIntentBurnNumberEndpoint(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@test.com", "")

	rec := a.do(t, http.MethodPost, "/api/v1/checkout/google_pay_burn_number", u, `{"new_number":"5550009","price":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, "BurnNumber purchased successfully!", out["message"])
	intent := out["intent"].(map[string]any)
	assert.NotEmpty(t, intent["client_secret"])
	pay := out["payment"].(map[string]any)
	assert.Equal(t, string(models.SourceGooglePay), pay["source_type"])
	assert.EqualValues(t, 300, pay["amount"])
	require.Len(t, a.gw.Intents, 1)
	assert.Equal(t, money.Amount(300), a.gw.Intents[0].Amount)
}

func TestSwaggerDocServed(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	for _, path := range []string{
		"/auth/login",
		"/api/v1/checkout/create_charge_for_theme",
		"/api/v1/stripe_connect/connect",
		"/api/v1/transactions/transfer",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}

func jsonUint(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
