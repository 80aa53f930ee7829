package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway/gatewaytest"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/GiorgiUbiria/textng_payments/internal/store/storetest"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	st        *store.Store
	gw        *gatewaytest.Fake
	purchases *Purchases
	connect   *Connect
	wallet    *Wallet
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := storetest.Open(t)
	st := store.New(db)
	gw := gatewaytest.NewFake()
	connect := NewConnect(st, gw)
	return &fixture{
		ctx:       context.Background(),
		db:        db,
		st:        st,
		gw:        gw,
		purchases: NewPurchases(st, gw),
		connect:   connect,
		wallet:    NewWallet(st, gw, connect, "3.00"),
	}
}

// user creates a user; a non-empty connectRef is registered as verified.
func (fx *fixture) user(t *testing.T, email, number, connectRef string) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, GatewayCustomerRef: "cus_" + email, Number: number}
	if connectRef != "" {
		u.GatewayConnectRef = &connectRef
		fx.gw.Verify(connectRef)
	}
	require.NoError(t, fx.st.CreateUser(fx.ctx, u))
	return u
}

func (fx *fixture) card(t *testing.T, u *models.User) *models.Card {
	t.Helper()
	c := &models.Card{UserID: u.ID, Token: "tok_visa", HolderName: "Jane Doe", Brand: "visa", Last4: "4242", ExpiryMonth: 4, ExpiryYear: 2030}
	require.NoError(t, fx.db.Create(c).Error)
	return c
}

func (fx *fixture) theme(t *testing.T, price string) *models.Theme {
	t.Helper()
	th := &models.Theme{Name: "Midnight", Price: money.MustParse(price)}
	require.NoError(t, fx.db.Create(th).Error)
	return th
}

func (fx *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, fx.db.Model(model).Count(&n).Error)
	return n
}

// failCreate makes every insert into table fail.
func (fx *fixture) failCreate(t *testing.T, table string) {
	t.Helper()
	err := fx.db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("forced failure on " + table))
		}
	})
	require.NoError(t, err)
}

func requireValidation(t *testing.T, err error, msg string) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, msg, verr.Message)
	return verr
}
