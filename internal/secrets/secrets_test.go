// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/plotweave-dev/plotweave/internal/secrets"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

func init() {
	// Keep tests off the real OS keyring.
	keyring.MockInit()
}

func TestKeyringSetGetDelete(t *testing.T) {
	ks := secrets.Keyring{}
	svc := "test-roundtrip"

	require.NoError(t, ks.Set(svc, "api-key", "sk-secret-123"))

	value, err := ks.Get(svc, "api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-123", value)

	require.NoError(t, ks.Delete(svc, "api-key"))
	_, err = ks.Get(svc, "api-key")
	assert.True(t, pwerr.HasCode(err, pwerr.CodeSecretNotFound))
}

func TestKeyringGetNotFound(t *testing.T) {
	_, err := secrets.Keyring{}.Get("no-such-service", "no-key")
	assert.True(t, pwerr.HasCode(err, pwerr.CodeSecretNotFound))
}

func TestKeyringDeleteNotFound(t *testing.T) {
	err := secrets.Keyring{}.Delete("no-such-service", "no-key")
	assert.True(t, pwerr.HasCode(err, pwerr.CodeSecretNotFound))
}

func TestKeyringValidation(t *testing.T) {
	ks := secrets.Keyring{}

	assert.True(t, pwerr.IsInvalidInput(ks.Set("", "k", "v")))
	assert.True(t, pwerr.IsInvalidInput(ks.Set("svc", "", "v")))
	assert.True(t, pwerr.IsInvalidInput(ks.Set("bad/svc", "k", "v")))
	_, err := ks.Get("svc", "")
	assert.True(t, pwerr.IsInvalidInput(err))
}

func TestKeyringKeysIndex(t *testing.T) {
	ks := secrets.Keyring{}
	svc := "test-index"

	keys, err := ks.Keys(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, ks.Set(svc, "a", "1"))
	require.NoError(t, ks.Set(svc, "b", "2"))
	require.NoError(t, ks.Set(svc, "a", "1-again"))

	keys, err = ks.Keys(svc)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, ks.Delete(svc, "a"))
	keys, err = ks.Keys(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestParseURI(t *testing.T) {
	service, key, err := secrets.ParseURI("keyring://plotweave/embedding-api-key")
	require.NoError(t, err)
	assert.Equal(t, "plotweave", service)
	assert.Equal(t, "embedding-api-key", key)

	for _, bad := range []string{
		"plain-value",
		"keyring://",
		"keyring://only-service",
		"keyring:///missing-service",
		"keyring://service/",
	} {
		_, _, err := secrets.ParseURI(bad)
		assert.Error(t, err, "uri %q", bad)
	}
}

func TestResolve(t *testing.T) {
	ks := secrets.Keyring{}
	require.NoError(t, ks.Set("test-resolve", "token", "tok-42"))

	got, err := secrets.Resolve(ks, "keyring://test-resolve/token")
	require.NoError(t, err)
	assert.Equal(t, "tok-42", got)

	// Non-URI values pass through.
	got, err = secrets.Resolve(ks, "literal-value")
	require.NoError(t, err)
	assert.Equal(t, "literal-value", got)

	_, err = secrets.Resolve(ks, "keyring://test-resolve/absent")
	require.Error(t, err)
}

func TestResolveViper(t *testing.T) {
	ks := secrets.Keyring{}
	require.NoError(t, ks.Set("test-viper", "api-key", "sk-resolved"))

	v := viper.New()
	v.Set("embedding.api_key", "keyring://test-viper/api-key")
	v.Set("embedding.model", "text-embedding-3-small")
	v.Set("missing", "keyring://test-viper/absent")

	secrets.ResolveViper(v, ks)

	assert.Equal(t, "sk-resolved", v.GetString("embedding.api_key"))
	assert.Equal(t, "text-embedding-3-small", v.GetString("embedding.model"))
	// Unresolvable URIs stay put for later error surfacing.
	assert.Equal(t, "keyring://test-viper/absent", v.GetString("missing"))
}
