package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CashCard is a persisted cash card. ID and Owner are set by the store and the
// authenticated principal; only Amount changes after creation.
type CashCard struct {
	ID     int64           `db:"id" json:"id"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
	Owner  string          `db:"owner" json:"owner"`
}

// AmountScale and amountLimit mirror the NUMERIC(19,4) amount column.
const AmountScale = 4

var amountLimit = decimal.New(1, 19-AmountScale)

// ValidAmount reports whether d is non-negative and fits the amount column
// without rounding.
func ValidAmount(d decimal.Decimal) bool {
	if d.IsNegative() || d.Abs().GreaterThanOrEqual(amountLimit) {
		return false
	}
	return d.Equal(d.Truncate(AmountScale))
}

// CashCardInput is the client payload for create and update. Any id or owner
// in the request body is dropped during decoding.
type CashCardInput struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

// Equal reports whether both cards carry the same id, owner and amount.
// Amounts compare numerically, so 1.0 equals 1.00.
func (c CashCard) Equal(o CashCard) bool {
	return c.ID == o.ID && c.Owner == o.Owner && c.Amount.Equal(o.Amount)
}

// MarshalJSON writes the amount as a JSON number rather than decimal's default quoted string.
func (c CashCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID     int64       `json:"id"`
		Amount json.Number `json:"amount"`
		Owner  string      `json:"owner"`
	}{
		ID:     c.ID,
		Amount: json.Number(c.Amount.String()),
		Owner:  c.Owner,
	})
}
