package validation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/futuresbot/internal/models"
)

// OrderValidator checks user input before any network call is made
type OrderValidator interface {
	// Validate turns raw input into an order request or rejects it
	Validate(raw models.RawOrder) (*models.OrderRequest, *Assessment, error)

	// ValidateSymbol normalizes and checks a trading pair
	ValidateSymbol(symbol string) (string, error)

	// ValidateOrderType normalizes and checks an order type
	ValidateOrderType(orderType string) (models.OrderType, error)

	// ValidateOrderID parses an exchange order id
	ValidateOrderID(orderID string) (int64, error)

	// ValidateAsset normalizes and checks an asset name
	ValidateAsset(asset string) (string, error)

	// SetRules replaces the validation thresholds
	SetRules(rules Rules) error
}

// Rules 校验阈值，零值表示不限制
type Rules struct {
	SymbolPattern string          `json:"symbol_pattern"`
	MinQuantity   decimal.Decimal `json:"min_quantity"`
	MaxQuantity   decimal.Decimal `json:"max_quantity"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	MaxNotional   decimal.Decimal `json:"max_notional"`
}

// Assessment 校验结果附带的提示
type Assessment struct {
	Warnings []string `json:"warnings"`
}

// ErrInvalidOrder is matched by every *Error returned from the validator.
var ErrInvalidOrder = errors.New("invalid order")

// Error describes why a single input field was rejected.
type Error struct {
	Field  string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrInvalidOrder
}
