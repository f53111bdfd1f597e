package library

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntitlement(t *testing.T) {
	accountID := uuid.New()
	bookID := uuid.New()
	orderID := uuid.New()

	e, err := NewEntitlement(accountID, bookID, orderID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, accountID, e.AccountID)
	assert.Equal(t, bookID, e.BookID)
	assert.Equal(t, orderID, e.SourceOrderID)
	assert.False(t, e.GrantedAt.IsZero())
}

func TestNewEntitlement_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		accountID uuid.UUID
		bookID    uuid.UUID
		orderID   uuid.UUID
	}{
		{"nil account", uuid.Nil, uuid.New(), uuid.New()},
		{"nil book", uuid.New(), uuid.Nil, uuid.New()},
		{"nil order", uuid.New(), uuid.New(), uuid.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntitlement(tt.accountID, tt.bookID, tt.orderID)
			assert.Error(t, err)
		})
	}
}
