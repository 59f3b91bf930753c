// Package cli implements the interactive numbered menu of the trading bot.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/futuresbot/internal/models"
	"github.com/songzhibin97/futuresbot/internal/trading"
	"github.com/songzhibin97/futuresbot/internal/validation"
)

type State int

const (
	StateMainMenu State = iota
	StateAwaitingOrderInput
	StateAwaitingOrderIDInput
	StateAwaitingBalanceInput
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateMainMenu:
		return "main_menu"
	case StateAwaitingOrderInput:
		return "awaiting_order_input"
	case StateAwaitingOrderIDInput:
		return "awaiting_order_id_input"
	case StateAwaitingBalanceInput:
		return "awaiting_balance_input"
	case StateExiting:
		return "exiting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Menu struct {
	in           *bufio.Reader
	out          io.Writer
	executor     trading.TradeExecutor
	validator    validation.OrderValidator
	log          *slog.Logger
	balanceAsset string
	state        State

	lines      chan line
	readerOnce sync.Once
}

type line struct {
	text string
	err  error
}

func NewMenu(in *bufio.Reader, out io.Writer, executor trading.TradeExecutor, validator validation.OrderValidator, log *slog.Logger, balanceAsset string) *Menu {
	return &Menu{
		in:           in,
		out:          out,
		executor:     executor,
		validator:    validator,
		log:          log.With("component", "cli"),
		balanceAsset: balanceAsset,
		state:        StateMainMenu,
		lines:        make(chan line),
	}
}

func (m *Menu) State() State {
	return m.state
}

// Run drives the menu until the user exits, input ends or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	for m.state != StateExiting {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.state = m.step(ctx)
	}
	fmt.Fprintln(m.out, "Exiting. Goodbye!")
	return ctx.Err()
}

func (m *Menu) step(ctx context.Context) State {
	switch m.state {
	case StateMainMenu:
		return m.mainMenu(ctx)
	case StateAwaitingOrderInput:
		return m.placeOrder(ctx)
	case StateAwaitingOrderIDInput:
		return m.checkOrder(ctx)
	case StateAwaitingBalanceInput:
		return m.checkBalance(ctx)
	}
	return StateExiting
}

func (m *Menu) mainMenu(ctx context.Context) State {
	fmt.Fprint(m.out, "\n--- Main Menu ---\n1: Place New Order\n2: Check Order Status\n3: Check Balance\n4: Exit\n")
	choice, err := m.readLine(ctx, "Enter your choice (1-4): ")
	if err != nil {
		return StateExiting
	}
	switch choice {
	case "1":
		return StateAwaitingOrderInput
	case "2":
		return StateAwaitingOrderIDInput
	case "3":
		return StateAwaitingBalanceInput
	case "4":
		return StateExiting
	default:
		fmt.Fprintln(m.out, "Invalid choice. Please enter a number between 1 and 4.")
		return StateMainMenu
	}
}

func (m *Menu) placeOrder(ctx context.Context) State {
	fmt.Fprintln(m.out, "\n--- Place New Order ---")

	var raw models.RawOrder
	var err error
	if raw.Symbol, err = m.readLine(ctx, "Enter symbol (e.g., BTCUSDT): "); err != nil {
		return StateExiting
	}
	if raw.Side, err = m.readLine(ctx, "Enter side (BUY / SELL): "); err != nil {
		return StateExiting
	}
	if raw.Type, err = m.readLine(ctx, "Enter order type (MARKET / LIMIT / STOP_LIMIT): "); err != nil {
		return StateExiting
	}
	orderType, err := m.validator.ValidateOrderType(raw.Type)
	if err != nil {
		m.log.Warn("validation failed", "operation", "place_order", "err", err)
		fmt.Fprintln(m.out, "Invalid order type. Aborting.")
		return StateMainMenu
	}
	if raw.Quantity, err = m.readLine(ctx, "Enter quantity (e.g., 0.001): "); err != nil {
		return StateExiting
	}
	if orderType.RequiresStopPrice() {
		if raw.StopPrice, err = m.readLine(ctx, "Enter stop/trigger price: "); err != nil {
			return StateExiting
		}
	}
	if orderType.RequiresPrice() {
		prompt := "Enter limit price: "
		if orderType.RequiresStopPrice() {
			prompt = "Enter limit price (once triggered): "
		}
		if raw.Price, err = m.readLine(ctx, prompt); err != nil {
			return StateExiting
		}
	}

	order, assessment, err := m.validator.Validate(raw)
	if err != nil {
		m.log.Warn("validation failed", "operation", "place_order", "err", err)
		fmt.Fprintf(m.out, "Invalid input: %v\n", err)
		return StateMainMenu
	}
	for _, warning := range assessment.Warnings {
		m.log.Warn("order warning", "order", order, "warning", warning)
		fmt.Fprintf(m.out, "Warning: %s. Proceeding...\n", warning)
	}

	m.log.Info("order request", "order", order)
	result, err := m.executor.PlaceOrder(ctx, order)
	if err != nil {
		m.log.Error("order failed", "order", order, "err", err)
		fmt.Fprintf(m.out, "\n--- Order Failed to Place ---\n%s\n", describeError(err))
		return StateMainMenu
	}

	m.log.Info("order placed", "result", result)
	fmt.Fprintln(m.out, "\n--- Order Placed Successfully ---")
	printOrder(m.out, result)
	return StateMainMenu
}

func (m *Menu) checkOrder(ctx context.Context) State {
	fmt.Fprintln(m.out, "\n--- Check Order Status ---")

	rawSymbol, err := m.readLine(ctx, "Enter symbol (e.g., BTCUSDT): ")
	if err != nil {
		return StateExiting
	}
	rawID, err := m.readLine(ctx, "Enter Order ID: ")
	if err != nil {
		return StateExiting
	}

	symbol, err := m.validator.ValidateSymbol(rawSymbol)
	if err == nil {
		var orderID int64
		if orderID, err = m.validator.ValidateOrderID(rawID); err == nil {
			return m.fetchOrder(ctx, symbol, orderID)
		}
	}
	m.log.Warn("validation failed", "operation", "get_order", "err", err)
	fmt.Fprintf(m.out, "Invalid input: %v\n", err)
	return StateMainMenu
}

func (m *Menu) fetchOrder(ctx context.Context, symbol string, orderID int64) State {
	m.log.Info("order status request", "symbol", symbol, "order_id", orderID)
	order, err := m.executor.GetOrderStatus(ctx, symbol, orderID)
	if err != nil {
		m.log.Error("order status failed", "symbol", symbol, "order_id", orderID, "err", err)
		fmt.Fprintf(m.out, "\n--- Could not retrieve order ---\n%s\n", describeError(err))
		return StateMainMenu
	}

	m.log.Info("order status retrieved", "result", order)
	fmt.Fprintln(m.out, "\n--- Order Details ---")
	printOrder(m.out, order)
	return StateMainMenu
}

func (m *Menu) checkBalance(ctx context.Context) State {
	fmt.Fprintln(m.out, "\n--- Check Account Balance ---")

	rawAsset, err := m.readLine(ctx, fmt.Sprintf("Enter asset (default %s): ", m.balanceAsset))
	if err != nil {
		return StateExiting
	}
	if rawAsset == "" {
		rawAsset = m.balanceAsset
	}
	asset, err := m.validator.ValidateAsset(rawAsset)
	if err != nil {
		m.log.Warn("validation failed", "operation", "get_balance", "err", err)
		fmt.Fprintf(m.out, "Invalid input: %v\n", err)
		return StateMainMenu
	}

	m.log.Info("balance request", "asset", asset)
	balance, err := m.executor.GetBalance(ctx, asset)
	if err != nil {
		m.log.Error("balance failed", "asset", asset, "err", err)
		fmt.Fprintf(m.out, "Could not retrieve balance. %s\n", describeError(err))
		return StateMainMenu
	}

	m.log.Info("balance retrieved", "asset", asset, "available", balance.String())
	fmt.Fprintf(m.out, "Available %s Balance: %s\n", asset, FormatAmount(balance))
	return StateMainMenu
}

// readLine returns the next trimmed input line. It gives up when ctx is
// cancelled; the pending read stays in the reader goroutine.
func (m *Menu) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	m.readerOnce.Do(func() { go m.readLines() })

	select {
	case <-ctx.Done():
		fmt.Fprintln(m.out)
		return "", ctx.Err()
	case l, ok := <-m.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// readLines 在独立的 goroutine 中读取输入，读到错误后关闭通道
func (m *Menu) readLines() {
	defer close(m.lines)
	for {
		text, err := m.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && text != "" {
				m.lines <- line{text: strings.TrimSpace(text)}
			}
			m.lines <- line{err: err}
			return
		}
		m.lines <- line{text: strings.TrimSpace(text)}
	}
}

func describeError(err error) string {
	if errors.Is(err, trading.ErrOrderNotFound) {
		return "Order not found. Please check the symbol and Order ID."
	}
	if exErr, ok := trading.AsExchangeError(err); ok {
		return fmt.Sprintf("Exchange rejected the request: %s (code %d).", exErr.Message, exErr.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Request cancelled or timed out."
	}
	return "An unexpected error occurred. Check logs."
}

func printOrder(w io.Writer, o *models.OrderResult) {
	fmt.Fprintf(w, "  symbol:        %s\n", o.Symbol)
	fmt.Fprintf(w, "  orderId:       %d\n", o.OrderID)
	fmt.Fprintf(w, "  clientOrderId: %s\n", o.ClientOrderID)
	fmt.Fprintf(w, "  side:          %s\n", o.Side)
	fmt.Fprintf(w, "  type:          %s\n", o.Type)
	fmt.Fprintf(w, "  status:        %s\n", o.Status)
	fmt.Fprintf(w, "  price:         %s\n", o.Price)
	if o.StopPrice != "" && o.StopPrice != "0" {
		fmt.Fprintf(w, "  stopPrice:     %s\n", o.StopPrice)
	}
	fmt.Fprintf(w, "  origQty:       %s\n", o.OrigQuantity)
	fmt.Fprintf(w, "  executedQty:   %s\n", o.ExecutedQuantity)
	fmt.Fprintf(w, "  avgPrice:      %s\n", o.AvgPrice)
	fmt.Fprintf(w, "  timeInForce:   %s\n", o.TimeInForce)
	if !o.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  updateTime:    %s\n", o.UpdatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
}

// FormatAmount renders d with eight decimals and thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(8)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}
