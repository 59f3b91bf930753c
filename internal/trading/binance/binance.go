package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/songzhibin97/futuresbot/internal/models"
	"github.com/songzhibin97/futuresbot/internal/trading"
)

// Binance futures error codes that map onto trading error kinds.
const (
	codeTooManyRequests    = -1003
	codeInvalidSignature   = -1022
	codeCancelRejected     = -2011
	codeOrderNotFound      = -2013
	codeAPIKeyFormat       = -2014
	codeRejectedMBXKey     = -2015
	codeMarginInsufficient = -2019
)

// FuturesExecutor implements TradeExecutor for Binance USDⓈ-M futures
type FuturesExecutor struct {
	client     *futures.Client
	httpClient *resty.Client
	log        *slog.Logger
	mu         sync.RWMutex
}

// Options.HTTPClient carries the transport settings; signed calls go through
// the SDK on its underlying *http.Client.
type Options struct {
	BaseURL    string
	HTTPClient *resty.Client
}

// NewFuturesExecutor creates a new FuturesExecutor instance
func NewFuturesExecutor(creds models.Credentials, opts Options, log *slog.Logger) *FuturesExecutor {
	client := futures.NewClient(creds.APIKey, creds.APISecret)
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = resty.New()
	}
	client.HTTPClient = httpClient.GetClient()

	return &FuturesExecutor{
		client:     client,
		httpClient: httpClient,
		log:        log.With("component", "binance_futures"),
	}
}

// Ping checks that the futures REST endpoint is reachable. It is unsigned.
func (b *FuturesExecutor) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/fapi/v1/ping", b.client.BaseURL)
	b.log.Info("pinging exchange", "base_url", b.client.BaseURL)

	resp, err := b.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		err = fmt.Errorf("failed to ping: %w", err)
		b.log.Error("ping failed", "err", err)
		return err
	}

	if resp.StatusCode() != http.StatusOK {
		err = responseError("ping", resp)
		b.log.Error("ping failed", "status", resp.StatusCode(), "err", err)
		return err
	}
	return nil
}

// PlaceOrder implements order placement for Binance futures
func (b *FuturesExecutor) PlaceOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	orderType, err := convertOrderType(order.Type)
	if err != nil {
		return nil, err
	}

	var side futures.SideType
	switch order.Side {
	case models.SideBuy:
		side = futures.SideTypeBuy
	case models.SideSell:
		side = futures.SideTypeSell
	default:
		return nil, fmt.Errorf("invalid side: %s", order.Side)
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(orderType).
		Quantity(order.Quantity.String())

	// 限价和止损限价单需要价格与有效期
	if order.Type.RequiresPrice() {
		orderService.TimeInForce(futures.TimeInForceTypeGTC).Price(order.Price.String())
	}
	if order.Type.RequiresStopPrice() {
		orderService.StopPrice(order.StopPrice.String())
	}

	b.log.Info("placing order", "order", order, "exchange_type", string(orderType))
	result, err := orderService.Do(ctx)
	if err != nil {
		err = classify("place order", err)
		b.log.Error("place order failed", "order", order, "err", err)
		return nil, err
	}

	placed := &models.OrderResult{
		Symbol:           result.Symbol,
		OrderID:          result.OrderID,
		ClientOrderID:    result.ClientOrderID,
		Side:             string(result.Side),
		Type:             string(result.Type),
		Status:           string(result.Status),
		Price:            result.Price,
		StopPrice:        result.StopPrice,
		OrigQuantity:     result.OrigQuantity,
		ExecutedQuantity: result.ExecutedQuantity,
		AvgPrice:         result.AvgPrice,
		TimeInForce:      string(result.TimeInForce),
		UpdatedAt:        millis(result.UpdateTime),
	}
	b.log.Info("order accepted", "order_id", placed.OrderID, "status", placed.Status)
	b.log.Debug("order response", "result", placed)
	return placed, nil
}

// GetOrderStatus implements order status retrieval for Binance futures
func (b *FuturesExecutor) GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*models.OrderResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.log.Info("fetching order", "symbol", symbol, "order_id", orderID)
	result, err := b.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		err = classify("get order", err)
		b.log.Error("get order failed", "symbol", symbol, "order_id", orderID, "err", err)
		return nil, err
	}

	order := &models.OrderResult{
		Symbol:           result.Symbol,
		OrderID:          result.OrderID,
		ClientOrderID:    result.ClientOrderID,
		Side:             string(result.Side),
		Type:             string(result.Type),
		Status:           string(result.Status),
		Price:            result.Price,
		StopPrice:        result.StopPrice,
		OrigQuantity:     result.OrigQuantity,
		ExecutedQuantity: result.ExecutedQuantity,
		AvgPrice:         result.AvgPrice,
		TimeInForce:      string(result.TimeInForce),
		UpdatedAt:        millis(result.UpdateTime),
	}
	b.log.Info("order status", "order_id", order.OrderID, "status", order.Status)
	b.log.Debug("order response", "result", order)
	return order, nil
}

// GetBalance returns the available balance of asset; an asset absent from the
// account is reported as zero.
func (b *FuturesExecutor) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.log.Info("fetching account balance", "asset", asset)
	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		err = classify("get balance", err)
		b.log.Error("get balance failed", "asset", asset, "err", err)
		return decimal.Zero, err
	}

	for _, balance := range balances {
		if balance.Asset != asset {
			continue
		}
		available, err := decimal.NewFromString(balance.AvailableBalance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse balance %q: %w", balance.AvailableBalance, err)
		}
		b.log.Info("available balance", "asset", asset, "available", available.String())
		return available, nil
	}

	b.log.Warn("asset not found in futures account balance", "asset", asset)
	return decimal.Zero, nil
}

func convertOrderType(t models.OrderType) (futures.OrderType, error) {
	switch t {
	case models.OrderTypeMarket:
		return futures.OrderTypeMarket, nil
	case models.OrderTypeLimit:
		return futures.OrderTypeLimit, nil
	case models.OrderTypeStopLimit:
		// futures 的 STOP 类型即止损限价单
		return futures.OrderTypeStop, nil
	default:
		return "", fmt.Errorf("unsupported order type: %s", t)
	}
}

// classify turns SDK API errors into *trading.ExchangeError; transport errors
// are wrapped unchanged.
func classify(op string, err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var kind error
	switch apiErr.Code {
	case codeOrderNotFound, codeCancelRejected:
		kind = trading.ErrOrderNotFound
	case codeMarginInsufficient:
		kind = trading.ErrInsufficientMargin
	case codeTooManyRequests:
		kind = trading.ErrRateLimited
	case codeInvalidSignature, codeAPIKeyFormat, codeRejectedMBXKey:
		kind = trading.ErrUnauthorized
	default:
		if op == "place order" {
			kind = trading.ErrOrderRejected
		}
	}
	return trading.NewExchangeError(op, apiErr.Code, apiErr.Message, kind)
}

// responseError decodes the {"code","msg"} body Binance sends with non-2xx
// responses.
func responseError(op string, resp *resty.Response) error {
	var apiErr common.APIError
	if err := json.Unmarshal(resp.Body(), &apiErr); err != nil || apiErr.Code == 0 {
		return fmt.Errorf("failed to %s: unexpected status code: %d", op, resp.StatusCode())
	}
	return classify(op, &apiErr)
}

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
