package models

import (
	"time"

	"github.com/GiorgiUbiria/textng_payments/internal/money"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:50;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255" json:"-"`

	GatewayCustomerRef string  `gorm:"uniqueIndex;size:255;not null" json:"gateway_customer_ref"`
	GatewayConnectRef  *string `gorm:"uniqueIndex;size:255" json:"gateway_connect_ref"`

	PhoneNumber      *string    `gorm:"uniqueIndex;size:32" json:"phone_number"`
	Number           string     `gorm:"size:32;index" json:"number"` // currently assigned number
	NumberAssignedAt *time.Time `json:"number_assigned_at"`

	Cards         []Card         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Banks         []Bank         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Payments      []Payment      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Transactions  []Transaction  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Notifications []Notification `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// HasConnect reports whether the user finished creating a connect account.
func (u *User) HasConnect() bool {
	return u.GatewayConnectRef != nil && *u.GatewayConnectRef != ""
}

func (u *User) ConnectRef() string {
	if u.GatewayConnectRef == nil {
		return ""
	}
	return *u.GatewayConnectRef
}

type Card struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	Token       string `gorm:"size:255;not null" json:"-"`
	HolderName  string `gorm:"size:100" json:"holder_name"`
	Brand       string `gorm:"size:30" json:"brand"`
	Last4       string `gorm:"size:4" json:"last4"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
}

type Bank struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null" json:"user_id"`
	Token    string `gorm:"size:255;not null" json:"-"`
	BankName string `gorm:"size:100" json:"bank_name"`
	Last4    string `gorm:"size:4" json:"last4"`
}

type Contact struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	CompanionID uint   `gorm:"index;not null" json:"companion_id"`
	Name        string `gorm:"size:100" json:"name"`
}

type Theme struct {
	gorm.Model
	Name  string       `gorm:"size:100;not null" json:"name"`
	Price money.Amount `gorm:"not null" json:"price"`
}

type UserTheme struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_theme;not null" json:"user_id"`
	ThemeID   uint      `gorm:"uniqueIndex:idx_user_theme;not null" json:"theme_id"`
	CreatedAt time.Time `json:"created_at"`
}

type BurnNumber struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	BurnNumber string     `gorm:"uniqueIndex;size:32;not null" json:"burn_number"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	BoughtLast *time.Time `json:"bought_last"`
	CreatedAt  time.Time  `json:"created_at"`
}

type PayableKind string

const (
	PayableTheme      PayableKind = "Theme"
	PayableBurnNumber PayableKind = "BurnNumber"
)

// Payable identifies what a Payment bought.
type Payable struct {
	Kind PayableKind
	ID   uint
}

func ThemePayable(id uint) Payable      { return Payable{Kind: PayableTheme, ID: id} }
func BurnNumberPayable(id uint) Payable { return Payable{Kind: PayableBurnNumber, ID: id} }

type SourceType string

const (
	SourceCard      SourceType = "Credit Card"
	SourceBank      SourceType = "Bank"
	SourceConnect   SourceType = "Connect"
	SourceApplePay  SourceType = "Apple Pay"
	SourceGooglePay SourceType = "Google Pay"
)

// Payment is written once per successful purchase and never updated.
type Payment struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	UserID      uint         `gorm:"index;not null" json:"user_id"`
	PayableID   uint         `gorm:"index:idx_payable;not null" json:"payable_id"`
	PayableType PayableKind  `gorm:"index:idx_payable;size:20;not null" json:"payable_type"`
	Amount      money.Amount `gorm:"not null" json:"amount"`
	SourceType  SourceType   `gorm:"size:20;not null" json:"source_type"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}

func (p *Payment) Payable() Payable {
	return Payable{Kind: p.PayableType, ID: p.PayableID}
}

type TransactionMethod string

const (
	MethodTopUp    TransactionMethod = "TopUp"
	MethodTransfer TransactionMethod = "Transfer"
	MethodWithdraw TransactionMethod = "Withdraw"
)

// Transaction is a wallet ledger entry, written only after the gateway
// confirmed the money movement.
type Transaction struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	UserID            uint              `gorm:"index;not null" json:"user_id"`
	TransactionNumber string            `gorm:"uniqueIndex;size:40;not null" json:"transaction_number"`
	Method            TransactionMethod `gorm:"size:20;not null" json:"method"`
	Amount            money.Amount      `gorm:"not null" json:"amount"`
	SourceType        SourceType        `gorm:"size:20;not null" json:"source_type"`
	GatewayRef        string            `gorm:"size:255" json:"gateway_ref"`
	CreatedAt         time.Time         `gorm:"index" json:"created_at"`
}

type Notification struct {
	gorm.Model
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"size:255" json:"title"`
	Description      string    `gorm:"size:1024" json:"description"`
	NotificationDate time.Time `json:"notification_date"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{}, &Card{}, &Bank{}, &Contact{}, &Theme{},
		&UserTheme{}, &BurnNumber{}, &Payment{}, &Transaction{}, &Notification{},
	}
}
