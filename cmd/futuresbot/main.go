package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/songzhibin97/futuresbot/internal/cli"
	"github.com/songzhibin97/futuresbot/internal/configs"
	"github.com/songzhibin97/futuresbot/internal/logging"
	"github.com/songzhibin97/futuresbot/internal/trading"
	binanceTrading "github.com/songzhibin97/futuresbot/internal/trading/binance"
	"github.com/songzhibin97/futuresbot/internal/utils/request"
	"github.com/songzhibin97/futuresbot/internal/validation"
)

var (
	flagconf string
	flagenv  string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagenv, "env", ".env", "env file holding the API key and secret")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	// 加载配置
	config, err := configs.Load(flagconf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	log, logFile, err := logging.New(logging.Options{
		Path:         config.LogConfig.Path,
		ConsoleLevel: config.LogConfig.Level,
		MaxSizeMB:    config.LogConfig.MaxSizeMB,
		MaxBackups:   config.LogConfig.MaxBackups,
		MaxAgeDays:   config.LogConfig.MaxAgeDays,
	}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logFile.Close()

	fmt.Println("=========================================")
	fmt.Println("=   Binance Futures Testnet Trading Bot =")
	fmt.Println("=========================================")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 中断时密码输入可能仍处于关闭回显状态，退出前恢复终端
	stdinFd := int(os.Stdin.Fd())
	if state, err := term.GetState(stdinFd); err == nil {
		defer term.Restore(stdinFd, state)
	}

	stdin := bufio.NewReader(os.Stdin)
	creds, err := configs.LoadCredentials(ctx, configs.CredentialOptions{
		EnvFile:      flagenv,
		KeyEnv:       config.ExchangeConfig.KeyEnv,
		SecretEnv:    config.ExchangeConfig.SecretEnv,
		ConfigKey:    config.ExchangeConfig.APIKey,
		ConfigSecret: config.ExchangeConfig.SecretKey,
		Prompter:     configs.TerminalPrompter{Fd: stdinFd, In: stdin, Out: os.Stdout},
		Out:          os.Stdout,
	}, log)
	if errors.Is(err, context.Canceled) {
		log.Warn("interrupted while reading credentials")
		return 130
	}
	if err != nil {
		log.Error("API key and secret are required. Exiting.", "err", err)
		return 1
	}

	httpClient, err := request.New(time.Duration(config.ExchangeConfig.HTTPTimeoutSec)*time.Second, config.ExchangeConfig.Proxy)
	if err != nil {
		log.Error("Error creating http client", "err", err)
		return 1
	}

	log.Info("initializing executor", "base_url", config.ExchangeConfig.BaseURL, "testnet", config.ExchangeConfig.Testnet)
	executor := binanceTrading.NewFuturesExecutor(creds, binanceTrading.Options{
		BaseURL:    config.ExchangeConfig.BaseURL,
		HTTPClient: httpClient,
	}, log)

	if err := checkConnection(ctx, executor, config.BalanceAsset); err != nil {
		if ctx.Err() != nil {
			log.Warn("interrupted during connection check")
			return 130
		}
		log.Error("Failed to connect to the exchange. Check API keys and network.", "err", err)
		return 1
	}
	log.Info("Binance client initialized and connection successful.")

	menu := cli.NewMenu(stdin, os.Stdout, executor, validation.NewValidator(config.Validation.Rules()), log, config.BalanceAsset)
	if err := menu.Run(ctx); err != nil {
		log.Warn("menu stopped", "err", err)
		return 130
	}
	return 0
}

// checkConnection pings the exchange and performs one signed call so bad keys
// are reported before the menu is shown.
func checkConnection(ctx context.Context, executor trading.TradeExecutor, asset string) error {
	if err := executor.Ping(ctx); err != nil {
		return err
	}
	_, err := executor.GetBalance(ctx, asset)
	return err
}
