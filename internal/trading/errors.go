package trading

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound indicates the order does not exist on the exchange.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientMargin indicates the account cannot cover the order.
	ErrInsufficientMargin = errors.New("insufficient margin")
	// ErrRateLimited indicates the exchange throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized indicates the API key or signature was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOrderRejected indicates any other rejection of an order request.
	ErrOrderRejected = errors.New("order rejected")
)

// ExchangeError carries the upstream error code and message of a rejected call.
type ExchangeError struct {
	Op      string
	Code    int64
	Message string
	kind    error
}

func NewExchangeError(op string, code int64, msg string, kind error) *ExchangeError {
	return &ExchangeError{Op: op, Code: code, Message: msg, kind: kind}
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: exchange error code=%d msg=%s", e.Op, e.Code, e.Message)
}

// Unwrap exposes the classified kind so callers can use errors.Is.
func (e *ExchangeError) Unwrap() error {
	return e.kind
}

// AsExchangeError extracts the upstream error, if any, from an error chain.
func AsExchangeError(err error) (*ExchangeError, bool) {
	var exErr *ExchangeError
	if !errors.As(err, &exErr) {
		return nil, false
	}
	return exErr, true
}
