package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SscSPs/voledger/internal/middleware"
	"github.com/SscSPs/voledger/internal/platform/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--port", "9090", "--backend", "bolt"}))

	a := &app{v: viper.New()}
	require.NoError(t, a.initialize(root))
	assert.Equal(t, "9090", a.cfg.Port)
	assert.Equal(t, config.BackendBolt, a.cfg.StorageBackend)
	assert.NotNil(t, a.logger)
}

func TestInitialize_EnvironmentWithoutFlags(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)

	root := newRootCmd()
	require.NoError(t, root.ParseFlags(nil))

	a := &app{v: viper.New()}
	require.NoError(t, a.initialize(root))
	assert.Equal(t, "7000", a.cfg.Port)
	assert.Equal(t, config.BackendMemory, a.cfg.StorageBackend)
}

func TestInitialize_ConfigEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "ledger.env")
	require.NoError(t, os.WriteFile(envFile, []byte("COIN_SELECTION_BATCH_SIZE=7\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("COIN_SELECTION_BATCH_SIZE") })

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config-env", envFile}))

	a := &app{v: viper.New()}
	require.NoError(t, a.initialize(root))
	assert.Equal(t, 7, a.cfg.CoinSelectionBatchSize)

	missing := newRootCmd()
	require.NoError(t, missing.ParseFlags([]string{"--config-env", filepath.Join(t.TempDir(), "nope.env")}))
	assert.Error(t, (&app{v: viper.New()}).initialize(missing))
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)
	subject := uuid.New()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--subject", subject.String(), "--role", "issuer", "--ttl", "5m"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	claims := &middleware.LedgerClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims,
		func(*jwt.Token) (interface{}, error) { return []byte("cli-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, middleware.RoleIssuer, claims.Role)

	bad := newRootCmd()
	bad.SetOut(&out)
	bad.SetArgs([]string{"token", "--subject", subject.String(), "--role", "admin"})
	assert.Error(t, bad.ExecuteContext(context.Background()))
}
