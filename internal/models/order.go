package models

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

// OrderType 订单类型
type OrderType string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// RequiresPrice reports whether orders of this type carry a limit price.
func (t OrderType) RequiresPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit
}

// RequiresStopPrice reports whether orders of this type carry a trigger price.
func (t OrderType) RequiresStopPrice() bool {
	return t == OrderTypeStopLimit
}

// RawOrder 用户在命令行输入的原始字段
type RawOrder struct {
	Symbol    string
	Side      string
	Type      string
	Quantity  string
	Price     string
	StopPrice string
}

// OrderRequest 校验通过的下单请求
type OrderRequest struct {
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Type      OrderType       `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`      // MARKET 为零
	StopPrice decimal.Decimal `json:"stop_price"` // 仅 STOP_LIMIT
}

// LogValue keeps the log line limited to the fields that apply to the order type.
func (r OrderRequest) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("symbol", r.Symbol),
		slog.String("side", string(r.Side)),
		slog.String("type", string(r.Type)),
		slog.String("quantity", r.Quantity.String()),
	}
	if r.Type.RequiresPrice() {
		attrs = append(attrs, slog.String("price", r.Price.String()))
	}
	if r.Type.RequiresStopPrice() {
		attrs = append(attrs, slog.String("stop_price", r.StopPrice.String()))
	}
	return slog.GroupValue(attrs...)
}

// OrderResult 交易所返回的订单信息
type OrderResult struct {
	Symbol           string    `json:"symbol"`
	OrderID          int64     `json:"order_id"`
	ClientOrderID    string    `json:"client_order_id"`
	Side             string    `json:"side"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	Price            string    `json:"price"`
	StopPrice        string    `json:"stop_price"`
	OrigQuantity     string    `json:"orig_quantity"`
	ExecutedQuantity string    `json:"executed_quantity"`
	AvgPrice         string    `json:"avg_price"`
	TimeInForce      string    `json:"time_in_force"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (r OrderResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("symbol", r.Symbol),
		slog.Int64("order_id", r.OrderID),
		slog.String("client_order_id", r.ClientOrderID),
		slog.String("side", r.Side),
		slog.String("type", r.Type),
		slog.String("status", r.Status),
		slog.String("price", r.Price),
		slog.String("stop_price", r.StopPrice),
		slog.String("orig_qty", r.OrigQuantity),
		slog.String("executed_qty", r.ExecutedQuantity),
		slog.String("avg_price", r.AvgPrice),
		slog.String("time_in_force", r.TimeInForce),
		slog.Time("updated_at", r.UpdatedAt),
	)
}

// Credentials 交易所 API 凭证，仅保存在内存中
type Credentials struct {
	APIKey    string
	APISecret string
}

// LogValue never exposes the secret; the key is reduced to its last four characters.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_key", mask(c.APIKey)),
		slog.String("api_secret", "[REDACTED]"),
	)
}

func (c Credentials) String() string {
	return "Credentials{api_key=" + mask(c.APIKey) + ", api_secret=[REDACTED]}"
}

func (c Credentials) Empty() bool {
	return c.APIKey == "" || c.APISecret == ""
}

func mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
