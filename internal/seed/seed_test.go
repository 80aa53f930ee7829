package seed

import (
	"context"
	"testing"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway/gatewaytest"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunSeedsOnce(t *testing.T) {
	db := storetest.Open(t)
	gw := gatewaytest.NewFake()
	ctx := context.Background()

	require.NoError(t, Run(ctx, db, gw))
	require.NoError(t, Run(ctx, db, gw))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 3)
	assert.Equal(t, 3, gw.CallCount("customer"))
	for _, u := range users {
		assert.NotEmpty(t, u.GatewayCustomerRef)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(seedPassword)))
	}

	var contacts, themes int64
	require.NoError(t, db.Model(&models.Contact{}).Count(&contacts).Error)
	require.NoError(t, db.Model(&models.Theme{}).Count(&themes).Error)
	assert.EqualValues(t, 6, contacts)
	assert.EqualValues(t, 3, themes)
}
