package store

import (
	"context"
	"time"

	"github.com/GiorgiUbiria/textng_payments/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *Store) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// SetConnectRef stores ref only if the user has none yet. It reports whether
// this call was the one that set it.
func (s *Store) SetConnectRef(ctx context.Context, userID uint, ref string) (bool, error) {
	res := s.conn(ctx).Model(&models.User{}).
		Where("id = ? AND gateway_connect_ref IS NULL", userID).
		Update("gateway_connect_ref", ref)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReassignNumber gives the user a new active number.
func (s *Store) ReassignNumber(ctx context.Context, u *models.User, number string, at time.Time) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"number":             number,
		"number_assigned_at": at,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	u.Number = number
	u.NumberAssignedAt = &at
	return nil
}

func (s *Store) FindCard(ctx context.Context, userID, cardID uint) (*models.Card, error) {
	var c models.Card
	if err := s.conn(ctx).Where("user_id = ? AND id = ?", userID, cardID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FirstCard returns the user's oldest card.
func (s *Store) FirstCard(ctx context.Context, userID uint) (*models.Card, error) {
	var c models.Card
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("id").First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindBank(ctx context.Context, userID, bankID uint) (*models.Bank, error) {
	var b models.Bank
	if err := s.conn(ctx).Where("user_id = ? AND id = ?", userID, bankID).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *Store) FindContact(ctx context.Context, userID, contactID uint) (*models.Contact, error) {
	var c models.Contact
	if err := s.conn(ctx).Where("user_id = ? AND id = ?", userID, contactID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindTheme(ctx context.Context, id uint) (*models.Theme, error) {
	var t models.Theme
	if err := s.conn(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) CreateNotification(ctx context.Context, userID uint, title, description string) error {
	n := models.Notification{
		UserID:           userID,
		Title:            title,
		Description:      description,
		NotificationDate: time.Now(),
	}
	return translate(s.conn(ctx).Create(&n).Error)
}
