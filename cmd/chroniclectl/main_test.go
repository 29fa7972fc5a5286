package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"chronicles/config"
	"chronicles/crypto"
	"chronicles/native/issuance"
)

const (
	testProgram = "BGm9wMokNQAR6zUipPugJZfJ1bsum3faW3iuVFJn1qyx"
	testAdmin   = "7KvcExBAcQXqomKDpVr5wvzSM8risJKQWVSeE1FnWqSh"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDeriveAuthorityMatchesEngine(t *testing.T) {
	out, err := execute(t, "derive-authority", "--program", testProgram, "--seed", "7", "--json")
	require.NoError(t, err)

	var got issuance.Authorities
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	want, err := issuance.DeriveAuthorities(crypto.MustIdentity(testProgram), 7)
	require.NoError(t, err)
	require.Equal(t, want, got)

	text, err := execute(t, "derive-authority", "--program", testProgram, "--seed", "7")
	require.NoError(t, err)
	require.Contains(t, text, want.Config.String())
	require.Contains(t, text, want.Antiscam.String())
}

func TestDeriveAuthorityRejectsBadProgram(t *testing.T) {
	_, err := execute(t, "derive-authority", "--program", "not-base58!")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--program")
}

func TestInitThenValidateDeployment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deployment.toml")

	out, err := execute(t, "init-deployment", "--program", testProgram, "--admin", testAdmin, "--seed", "3", "--out", path)
	require.NoError(t, err)
	require.Contains(t, out, path)

	_, err = execute(t, "init-deployment", "--program", testProgram, "--admin", testAdmin, "--out", path)
	require.ErrorContains(t, err, "--force")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Seed)
	require.NotNil(t, loaded.Bumps)

	out, err = execute(t, "validate-deployment", path, "--json")
	require.NoError(t, err)
	var summary deploymentSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, testAdmin, summary.Admin.String())
	require.Equal(t, issuance.DefaultFeeSettings(), summary.Fees)
	require.Zero(t, summary.Collections)
}

func TestValidateDeploymentReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.toml")
	deployment, err := config.Default(crypto.MustIdentity(testProgram), crypto.MustIdentity(testAdmin), 3)
	require.NoError(t, err)
	deployment.Bumps.Config++
	require.NoError(t, config.Persist(path, deployment))

	_, err = execute(t, "validate-deployment", path)
	require.ErrorContains(t, err, "bumps")
}

func TestTokenUsesSecretFromEnvironment(t *testing.T) {
	t.Setenv(secretEnv, "operator-secret")

	out, err := execute(t, "token", "--subject", testAdmin, "--scope", "admin", "--scope", "mint", "--audience", "issuanced")
	require.NoError(t, err)

	raw := strings.TrimSpace(out)
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("operator-secret"), nil
	})
	require.NoError(t, err)
	require.Equal(t, testAdmin, claims["sub"])
	require.Equal(t, "admin mint", claims["scope"])
	require.Equal(t, "issuanced", claims["aud"])
}

func TestKeygenPrintsIdentity(t *testing.T) {
	out, err := execute(t, "keygen")
	require.NoError(t, err)
	id, err := crypto.ParseIdentity(strings.TrimSpace(out))
	require.NoError(t, err)
	require.False(t, id.IsZero())
}

func TestExportRejectsBadBounds(t *testing.T) {
	_, err := execute(t, "export", "--index-dsn", filepath.Join(t.TempDir(), "index.db"), "--since", "yesterday")
	require.ErrorContains(t, err, "--since")
}
