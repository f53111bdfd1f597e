package identity

import (
	"strings"

	"github.com/Ashtonex/maasim/internal/domain/shared"
)

// Account is a registered reader. Guest purchases carry an email only and
// are matched to an account by that email when one exists.
//
// Accounts are provisioned by the identity provider that issues the JWTs;
// this service reads them and never mutates profile data.
type Account struct {
	shared.BaseAggregateRoot
	Email       string `gorm:"type:varchar(254);not null;uniqueIndex"`
	DisplayName string `gorm:"type:varchar(100)"`
	IsAdmin     bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new account. Email is normalized to lower case so
// that buyer matching is case-insensitive.
func NewAccount(email, displayName string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "account email is invalid")
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		DisplayName:       strings.TrimSpace(displayName),
	}, nil
}

// NormalizeEmail lowercases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
