package store

import (
	"context"
	"sort"
	"time"

	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/oklog/ulid/v2"
)

const transactionPrefix = "AHU"

// NewTransactionNumber returns a globally unique ledger key. ulid.Make is safe
// for concurrent use and monotonic within the process.
func NewTransactionNumber() string {
	return transactionPrefix + ulid.Make().String()
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.TransactionNumber == "" {
		t.TransactionNumber = NewTransactionNumber()
	}
	return translate(s.conn(ctx).Create(t).Error)
}

func (s *Store) UserThemeExists(ctx context.Context, userID, themeID uint) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.UserTheme{}).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) CreateUserTheme(ctx context.Context, userID, themeID uint) (*models.UserTheme, error) {
	ut := models.UserTheme{UserID: userID, ThemeID: themeID}
	if err := s.conn(ctx).Create(&ut).Error; err != nil {
		return nil, translate(err)
	}
	return &ut, nil
}

// NumberBurned reports whether anyone has already burned number.
func (s *Store) NumberBurned(ctx context.Context, number string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.BurnNumber{}).Where("burn_number = ?", number).Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) CreateBurnNumber(ctx context.Context, userID uint, number string) (*models.BurnNumber, error) {
	bn := models.BurnNumber{BurnNumber: number, UserID: userID}
	if err := s.conn(ctx).Create(&bn).Error; err != nil {
		return nil, translate(err)
	}
	return &bn, nil
}

func (s *Store) StampBoughtLast(ctx context.Context, bn *models.BurnNumber, at time.Time) error {
	res := s.conn(ctx).Model(&models.BurnNumber{}).Where("id = ?", bn.ID).Update("bought_last", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	bn.BoughtLast = &at
	return nil
}

const (
	EntryTransaction = "transaction"
	EntryPayment     = "payment"
)

// HistoryEntry is one row of the merged purchase and wallet history.
type HistoryEntry struct {
	Kind        string              `json:"kind"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Payment     *models.Payment     `json:"payment,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// History merges the user's transactions and payments, newest first.
func (s *Store) History(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	var txs []models.Transaction
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&txs).Error; err != nil {
		return nil, translate(err)
	}
	var payments []models.Payment
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&payments).Error; err != nil {
		return nil, translate(err)
	}

	entries := make([]HistoryEntry, 0, len(txs)+len(payments))
	for i := range txs {
		entries = append(entries, HistoryEntry{Kind: EntryTransaction, Transaction: &txs[i], CreatedAt: txs[i].CreatedAt})
	}
	for i := range payments {
		entries = append(entries, HistoryEntry{Kind: EntryPayment, Payment: &payments[i], CreatedAt: payments[i].CreatedAt})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
