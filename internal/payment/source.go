package payment

import (
	"context"
	"errors"

	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
)

// SourceSelector picks what a purchase is charged to. A zero id means the
// field was not supplied; with neither set the user's connect account is used.
type SourceSelector struct {
	CardID uint
	BankID uint
}

type Source struct {
	Ref  string
	Type models.SourceType
}

func resolveSource(ctx context.Context, st *store.Store, u *models.User, sel SourceSelector) (*Source, error) {
	switch {
	case sel.CardID != 0:
		card, err := st.FindCard(ctx, u.ID, sel.CardID)
		if err != nil {
			return nil, sourceLookupError(err)
		}
		return &Source{Ref: card.Token, Type: models.SourceCard}, nil
	case sel.BankID != 0:
		bank, err := st.FindBank(ctx, u.ID, sel.BankID)
		if err != nil {
			return nil, sourceLookupError(err)
		}
		return &Source{Ref: bank.Token, Type: models.SourceBank}, nil
	case u.HasConnect():
		return &Source{Ref: u.ConnectRef(), Type: models.SourceConnect}, nil
	}
	return nil, invalid("Invalid source provided!")
}

func sourceLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return invalid("Invalid source provided!")
	}
	return err
}
