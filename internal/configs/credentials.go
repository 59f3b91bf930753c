package configs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/songzhibin97/futuresbot/internal/models"
)

// ErrMissingCredentials is returned when no source yields both the key and the secret.
var ErrMissingCredentials = errors.New("api key and secret are required")

// Prompter asks the user for a secret value.
type Prompter interface {
	ReadSecret(prompt string) (string, error)
}

type PromptFunc func(prompt string) (string, error)

func (f PromptFunc) ReadSecret(prompt string) (string, error) {
	return f(prompt)
}

// TerminalPrompter hides input when Fd is a terminal and falls back to a plain
// line read from In otherwise (pipes, tests).
type TerminalPrompter struct {
	Fd  int
	In  *bufio.Reader
	Out io.Writer
}

func (p TerminalPrompter) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	if term.IsTerminal(p.Fd) {
		b, err := term.ReadPassword(p.Fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := p.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

type CredentialOptions struct {
	EnvFile   string
	KeyEnv    string
	SecretEnv string
	// values from the config file, used when the environment has none
	ConfigKey    string
	ConfigSecret string
	Prompter     Prompter
	Out          io.Writer
}

// LoadCredentials resolves the API key and secret from, in order: the process
// environment, the env file, the config file and finally an interactive prompt.
// A pending prompt is abandoned when ctx is cancelled.
func LoadCredentials(ctx context.Context, opts CredentialOptions, log *slog.Logger) (models.Credentials, error) {
	fileEnv := map[string]string{}
	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			log.Debug("env file not loaded", "path", opts.EnvFile, "err", err)
		} else {
			fileEnv = values
		}
	}

	key, err := resolve(ctx, "api key", opts.KeyEnv, opts.ConfigKey, fileEnv, opts, log)
	if err != nil {
		return models.Credentials{}, err
	}
	secret, err := resolve(ctx, "api secret", opts.SecretEnv, opts.ConfigSecret, fileEnv, opts, log)
	if err != nil {
		return models.Credentials{}, err
	}

	creds := models.Credentials{APIKey: key, APISecret: secret}
	if creds.Empty() {
		return models.Credentials{}, ErrMissingCredentials
	}
	log.Info("credentials loaded")
	return creds, nil
}

func resolve(ctx context.Context, label, envName, configValue string, fileEnv map[string]string, opts CredentialOptions, log *slog.Logger) (string, error) {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		log.Debug("credential resolved", "field", label, "source", "environment")
		return v, nil
	}
	if v := strings.TrimSpace(fileEnv[envName]); v != "" {
		log.Debug("credential resolved", "field", label, "source", "env_file")
		return v, nil
	}
	if configValue != "" {
		log.Debug("credential resolved", "field", label, "source", "config")
		return configValue, nil
	}
	if opts.Prompter == nil {
		return "", nil
	}

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "%s not found in .env file.\n", envName)
	}
	v, err := readSecret(ctx, opts.Prompter, fmt.Sprintf("Enter Binance Testnet %s: ", titleCase(label)))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	if v != "" {
		log.Debug("credential resolved", "field", label, "source", "prompt")
	}
	return v, nil
}

type secretResult struct {
	value string
	err   error
}

func readSecret(ctx context.Context, p Prompter, prompt string) (string, error) {
	ch := make(chan secretResult, 1)
	go func() {
		v, err := p.ReadSecret(prompt)
		ch <- secretResult{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.value, r.err
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "api" {
			words[i] = "API"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
