package seed

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const seedPassword = "password123"

var testUsers = []struct {
	Name   string
	Email  string
	Number string
}{
	{"Test User 1", "user1@test.com", "+15550000001"},
	{"Test User 2", "user2@test.com", "+15550000002"},
	{"Test User 3", "user3@test.com", "+15550000003"},
}

var themes = []struct {
	Name  string
	Price string
}{
	{"Midnight", "1.99"},
	{"Sunrise", "2.99"},
	{"Forest", "4.99"},
}

// Run inserts demo users with cards, banks, contacts and the theme catalogue.
// It does nothing when the demo users already exist.
func Run(ctx context.Context, db *gorm.DB, gw gateway.Gateway) error {
	emails := make([]string, 0, len(testUsers))
	for _, u := range testUsers {
		emails = append(emails, u.Email)
	}
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email IN ?", emails).Count(&count).Error; err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if count >= int64(len(testUsers)) {
		logger.Log.Info("seed already applied, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	hashed := string(hash)

	// Customer references are created up front; the gateway call cannot take
	// part in the database transaction.
	customers := make([]string, len(testUsers))
	for i, u := range testUsers {
		ref, err := gw.CreateCustomer(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("create customer for %s: %w", u.Email, err)
		}
		customers[i] = ref
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]models.User, len(testUsers))
		for i, u := range testUsers {
			users[i] = models.User{
				Name:               u.Name,
				Email:              u.Email,
				Password:           hashed,
				GatewayCustomerRef: customers[i],
				Number:             u.Number,
			}
			if err := tx.Create(&users[i]).Error; err != nil {
				return err
			}
			card := models.Card{
				UserID:      users[i].ID,
				Token:       "tok_visa",
				HolderName:  u.Name,
				Brand:       "visa",
				Last4:       "4242",
				ExpiryMonth: 12,
				ExpiryYear:  2030,
			}
			if err := tx.Create(&card).Error; err != nil {
				return err
			}
			bank := models.Bank{UserID: users[i].ID, Token: "btok_us_verified", BankName: "STRIPE TEST BANK", Last4: "6789"}
			if err := tx.Create(&bank).Error; err != nil {
				return err
			}
		}

		// Everyone knows everyone else.
		for i := range users {
			for j := range users {
				if i == j {
					continue
				}
				c := models.Contact{UserID: users[i].ID, CompanionID: users[j].ID, Name: users[j].Name}
				if err := tx.Create(&c).Error; err != nil {
					return err
				}
			}
		}

		for _, t := range themes {
			th := models.Theme{Name: t.Name, Price: money.MustParse(t.Price)}
			if err := tx.Create(&th).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	logger.Log.Info("seeded test users", zap.Int("users", len(testUsers)), zap.String("password", seedPassword))
	return nil
}
