package configs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyEnv    = "FUTURESBOT_TEST_KEY"
	testSecretEnv = "FUTURESBOT_TEST_SECRET"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func noPrompt(t *testing.T) Prompter {
	return PromptFunc(func(prompt string) (string, error) {
		t.Errorf("unexpected prompt %q", prompt)
		return "", errors.New("unexpected prompt")
	})
}

func TestLoadCredentials_Environment(t *testing.T) {
	t.Setenv(testKeyEnv, "env-key-1234")
	t.Setenv(testSecretEnv, "env-secret-5678")

	var logs bytes.Buffer
	creds, err := LoadCredentials(context.Background(), CredentialOptions{
		KeyEnv:    testKeyEnv,
		SecretEnv: testSecretEnv,
		Prompter:  noPrompt(t),
	}, newTestLogger(&logs))
	require.NoError(t, err)

	assert.Equal(t, "env-key-1234", creds.APIKey)
	assert.Equal(t, "env-secret-5678", creds.APISecret)
	assert.NotContains(t, logs.String(), "env-key-1234")
	assert.NotContains(t, logs.String(), "env-secret-5678")
	assert.Contains(t, logs.String(), "source=environment")
}

func TestLoadCredentials_EnvFile(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	t.Setenv(testSecretEnv, "")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte(testKeyEnv+"=file-key\n"+testSecretEnv+"=\"file-secret\"\n"), 0o600))

	var logs bytes.Buffer
	creds, err := LoadCredentials(context.Background(), CredentialOptions{
		EnvFile:   envFile,
		KeyEnv:    testKeyEnv,
		SecretEnv: testSecretEnv,
		Prompter:  noPrompt(t),
	}, newTestLogger(&logs))
	require.NoError(t, err)

	assert.Equal(t, "file-key", creds.APIKey)
	assert.Equal(t, "file-secret", creds.APISecret)
	assert.NotContains(t, logs.String(), "file-secret")
}

func TestLoadCredentials_EnvironmentOverridesEnvFile(t *testing.T) {
	t.Setenv(testKeyEnv, "env-key")
	t.Setenv(testSecretEnv, "")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte(testKeyEnv+"=file-key\n"+testSecretEnv+"=file-secret\n"), 0o600))

	creds, err := LoadCredentials(context.Background(), CredentialOptions{
		EnvFile:   envFile,
		KeyEnv:    testKeyEnv,
		SecretEnv: testSecretEnv,
		Prompter:  noPrompt(t),
	}, newTestLogger(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "file-secret", creds.APISecret)
}

func TestLoadCredentials_ConfigThenPrompt(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	t.Setenv(testSecretEnv, "")

	var out bytes.Buffer
	var prompts []string
	creds, err := LoadCredentials(context.Background(), CredentialOptions{
		EnvFile:   filepath.Join(t.TempDir(), "missing.env"),
		KeyEnv:    testKeyEnv,
		SecretEnv: testSecretEnv,
		ConfigKey: "config-key",
		Prompter: PromptFunc(func(prompt string) (string, error) {
			prompts = append(prompts, prompt)
			return "typed-secret", nil
		}),
		Out: &out,
	}, newTestLogger(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, "config-key", creds.APIKey)
	assert.Equal(t, "typed-secret", creds.APISecret)
	assert.Equal(t, []string{"Enter Binance Testnet API Secret: "}, prompts)
	assert.Contains(t, out.String(), testSecretEnv+" not found in .env file.")
}

func TestLoadCredentials_MissingIsFatal(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	t.Setenv(testSecretEnv, "")

	tests := []struct {
		name     string
		prompter Prompter
	}{
		{"no prompter", nil},
		{"empty answers", PromptFunc(func(string) (string, error) { return "", nil })},
		{"stdin closed", PromptFunc(func(string) (string, error) { return "", io.EOF })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCredentials(context.Background(), CredentialOptions{
				KeyEnv:    testKeyEnv,
				SecretEnv: testSecretEnv,
				Prompter:  tt.prompter,
			}, newTestLogger(&bytes.Buffer{}))
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}
}

func TestLoadCredentials_PromptError(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	t.Setenv(testSecretEnv, "")
	boom := errors.New("terminal gone")

	_, err := LoadCredentials(context.Background(), CredentialOptions{
		KeyEnv:    testKeyEnv,
		SecretEnv: testSecretEnv,
		Prompter:  PromptFunc(func(string) (string, error) { return "", boom }),
	}, newTestLogger(&bytes.Buffer{}))
	assert.ErrorIs(t, err, boom)
}

func TestLoadCredentials_CancelDuringPrompt(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	t.Setenv(testSecretEnv, "")

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := LoadCredentials(ctx, CredentialOptions{
			KeyEnv:    testKeyEnv,
			SecretEnv: testSecretEnv,
			Prompter: PromptFunc(func(string) (string, error) {
				<-block
				return "", io.EOF
			}),
		}, newTestLogger(&bytes.Buffer{}))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrMissingCredentials)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadCredentials did not return after the context was cancelled")
	}
}

func TestTerminalPrompter_NonTerminalReadsLine(t *testing.T) {
	var out bytes.Buffer
	p := TerminalPrompter{
		Fd:  -1,
		In:  bufio.NewReader(strings.NewReader("  secret-value \nnext\n")),
		Out: &out,
	}

	v, err := p.ReadSecret("Enter secret: ")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", v)
	assert.Equal(t, "Enter secret: ", out.String())
}
