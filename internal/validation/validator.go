package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/futuresbot/internal/models"
)

const DefaultSymbolPattern = `^[A-Z0-9]{5,20}$`

// plainDecimal 只接受普通小数写法，不接受指数形式（如 1e50000000）
var plainDecimal = regexp.MustCompile(`^-?\d{0,18}(\.\d{1,18})?$`)

func DefaultRules() Rules {
	return Rules{SymbolPattern: DefaultSymbolPattern}
}

// Validate checks that the thresholds are usable.
func (r Rules) Validate() error {
	if _, err := compilePattern(r.SymbolPattern); err != nil {
		return err
	}
	for name, v := range map[string]decimal.Decimal{
		"min_quantity": r.MinQuantity,
		"max_quantity": r.MaxQuantity,
		"max_price":    r.MaxPrice,
		"max_notional": r.MaxNotional,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if r.MaxQuantity.IsPositive() && r.MaxQuantity.LessThan(r.MinQuantity) {
		return fmt.Errorf("max_quantity must be >= min_quantity")
	}
	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = DefaultSymbolPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid symbol_pattern: %w", err)
	}
	return re, nil
}

type BasicValidator struct {
	rules   Rules
	symbol  *regexp.Regexp
	rulesMu sync.RWMutex
}

// NewValidator panics if the initial rules are invalid; use SetRules for untrusted input.
func NewValidator(initialRules Rules) *BasicValidator {
	v := &BasicValidator{}
	if err := v.SetRules(initialRules); err != nil {
		panic(err)
	}
	return v
}

func (v *BasicValidator) SetRules(rules Rules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	re, err := compilePattern(rules.SymbolPattern)
	if err != nil {
		return err
	}

	v.rulesMu.Lock()
	v.rules = rules
	v.symbol = re
	v.rulesMu.Unlock()

	return nil
}

func (v *BasicValidator) snapshot() (Rules, *regexp.Regexp) {
	v.rulesMu.RLock()
	defer v.rulesMu.RUnlock()
	return v.rules, v.symbol
}

func (v *BasicValidator) Validate(raw models.RawOrder) (*models.OrderRequest, *Assessment, error) {
	rules, _ := v.snapshot()

	symbol, err := v.ValidateSymbol(raw.Symbol)
	if err != nil {
		return nil, nil, err
	}
	side, err := parseSide(raw.Side)
	if err != nil {
		return nil, nil, err
	}
	orderType, err := parseOrderType(raw.Type)
	if err != nil {
		return nil, nil, err
	}
	qty, err := parsePositive("quantity", raw.Quantity)
	if err != nil {
		return nil, nil, err
	}
	if rules.MinQuantity.IsPositive() && qty.LessThan(rules.MinQuantity) {
		return nil, nil, &Error{Field: "quantity", Value: raw.Quantity, Reason: "below minimum " + rules.MinQuantity.String()}
	}
	if rules.MaxQuantity.IsPositive() && qty.GreaterThan(rules.MaxQuantity) {
		return nil, nil, &Error{Field: "quantity", Value: raw.Quantity, Reason: "above maximum " + rules.MaxQuantity.String()}
	}

	order := &models.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: qty,
	}
	assessment := &Assessment{Warnings: make([]string, 0)}

	// MARKET 订单忽略价格输入
	if !orderType.RequiresPrice() {
		return order, assessment, nil
	}

	if order.Price, err = parsePrice("price", raw.Price, rules); err != nil {
		return nil, nil, err
	}
	if rules.MaxNotional.IsPositive() {
		notional := order.Price.Mul(qty)
		if notional.GreaterThan(rules.MaxNotional) {
			return nil, nil, &Error{Field: "quantity", Value: raw.Quantity,
				Reason: fmt.Sprintf("notional %s above maximum %s", notional, rules.MaxNotional)}
		}
	}

	if orderType.RequiresStopPrice() {
		if order.StopPrice, err = parsePrice("stop price", raw.StopPrice, rules); err != nil {
			return nil, nil, err
		}
		if (side == models.SideBuy && !order.StopPrice.LessThan(order.Price)) ||
			(side == models.SideSell && !order.StopPrice.GreaterThan(order.Price)) {
			assessment.Warnings = append(assessment.Warnings,
				fmt.Sprintf("unusual STOP_LIMIT prices for %s: stop price %s, limit price %s; order might fill immediately or not at all",
					side, order.StopPrice, order.Price))
		}
	}

	return order, assessment, nil
}

func (v *BasicValidator) ValidateSymbol(symbol string) (string, error) {
	_, re := v.snapshot()
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return "", &Error{Field: "symbol", Reason: "must not be empty"}
	}
	if !re.MatchString(normalized) {
		return "", &Error{Field: "symbol", Value: symbol, Reason: "must match " + re.String()}
	}
	return normalized, nil
}

func (v *BasicValidator) ValidateOrderType(orderType string) (models.OrderType, error) {
	return parseOrderType(orderType)
}

func (v *BasicValidator) ValidateOrderID(orderID string) (int64, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return 0, &Error{Field: "order id", Reason: "must not be empty"}
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, &Error{Field: "order id", Value: orderID, Reason: "must be a number"}
		}
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, &Error{Field: "order id", Value: orderID, Reason: "must be a positive 64-bit integer"}
	}
	return id, nil
}

func (v *BasicValidator) ValidateAsset(asset string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(asset))
	if normalized == "" {
		return "", &Error{Field: "asset", Reason: "must not be empty"}
	}
	for _, r := range normalized {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", &Error{Field: "asset", Value: asset, Reason: "must be alphanumeric"}
		}
	}
	return normalized, nil
}

func parseSide(raw string) (models.Side, error) {
	switch side := models.Side(strings.ToUpper(strings.TrimSpace(raw))); side {
	case models.SideBuy, models.SideSell:
		return side, nil
	}
	return "", &Error{Field: "side", Value: raw, Reason: "must be BUY or SELL"}
}

func parseOrderType(raw string) (models.OrderType, error) {
	switch t := models.OrderType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case models.OrderTypeMarket, models.OrderTypeLimit, models.OrderTypeStopLimit:
		return t, nil
	}
	return "", &Error{Field: "order type", Value: raw, Reason: "must be MARKET, LIMIT or STOP_LIMIT"}
}

func parsePositive(field, raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, &Error{Field: field, Reason: "is required"}
	}
	if !plainDecimal.MatchString(trimmed) {
		return decimal.Zero, &Error{Field: field, Value: raw, Reason: "must be a plain decimal number with at most 18 integer and 18 fractional digits"}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &Error{Field: field, Value: raw, Reason: "must be a decimal number"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &Error{Field: field, Value: raw, Reason: "must be positive"}
	}
	return d, nil
}

func parsePrice(field, raw string, rules Rules) (decimal.Decimal, error) {
	price, err := parsePositive(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if rules.MaxPrice.IsPositive() && price.GreaterThan(rules.MaxPrice) {
		return decimal.Zero, &Error{Field: field, Value: raw, Reason: "above maximum " + rules.MaxPrice.String()}
	}
	return price, nil
}
