package payment

import (
	"fmt"

	"github.com/GiorgiUbiria/textng_payments/internal/models"
	"github.com/shopspring/decimal"
)

// Receipt is the response body of a successful wallet operation.
type Receipt struct {
	Message           string            `json:"message"`
	Amount            decimal.Decimal   `json:"amount" swaggertype:"string" example:"10.5"`
	Method            models.SourceType `json:"method"`
	Currency          string            `json:"currency,omitempty"`
	TransactionNumber string            `json:"transaction_number"`
	TransactionID     string            `json:"transaction_id"`
	WalletBalance     *decimal.Decimal  `json:"wallet_balance" swaggertype:"string" example:"25"`
	ServiceCharge     string            `json:"service_charge,omitempty"`
	TransferredTo     string            `json:"transferred_to,omitempty"`
	ReceiverNumber    string            `json:"receiver_number,omitempty"`
	Card              *CardSummary      `json:"card,omitempty"`
}

// CardSummary never carries the card number or security code, only the last
// four digits.
type CardSummary struct {
	HolderName string `json:"holder_name"`
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
}

func summarizeCard(c *models.Card) *CardSummary {
	if c == nil {
		return nil
	}
	return &CardSummary{
		HolderName: c.HolderName,
		Number:     "**** " + c.Last4,
		Expiry:     fmt.Sprintf("%02d/%d", c.ExpiryMonth, c.ExpiryYear),
	}
}
