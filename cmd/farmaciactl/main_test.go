package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/pkg/jwt"
)

const testSecret = "cli-test-secret"

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_DSN", filepath.Join(t.TempDir(), "farmacia.db"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("APP_ENV", "production")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SeedMovimientoYConciliacion(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed", "--file", "../../seed/farmacia.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"medications": 5`)

	out, err = run(t, "movement", "record", "--batch", "1", "--type", "salida", "--quantity", "20", "--user", "1")
	require.NoError(t, err)
	var mov dto.MovementResponse
	require.NoError(t, json.Unmarshal([]byte(out), &mov))
	assert.Equal(t, "outbound", mov.Type)
	assert.EqualValues(t, 20, mov.Quantity)

	_, err = run(t, "movement", "record", "--batch", "1", "--type", "salida", "--quantity", "100000", "--user", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock insuficiente")

	out, err = run(t, "reconcile", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"consistent": true`)

	out, err = run(t, "reports", "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "Ibuprofeno")

	out, err = run(t, "movement", "list", "--batch", "1", "--limit", "1")
	require.NoError(t, err)
	var list []dto.MovementResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, mov.ID, list[0].ID)
}

func TestCLI_Token(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "token", "--user", "7", "--name", "Ana")
	require.NoError(t, err)

	claims, err := jwt.Parse(testSecret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
}

func TestCLI_ArgumentosInvalidos(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "reconcile", "abc")
	require.Error(t, err)

	_, err = run(t, "reports", "consumo", "--month", "13", "--year", "2024")
	require.Error(t, err)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
