package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/futuresbot/internal/models"
)

// TradeExecutor defines methods for executing trades
type TradeExecutor interface {
	// Ping checks connectivity to the exchange
	Ping(ctx context.Context) error

	// PlaceOrder places a new order
	PlaceOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResult, error)

	// GetOrderStatus retrieves the status of an order
	GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*models.OrderResult, error)

	// GetBalance retrieves the available balance of an asset
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}
