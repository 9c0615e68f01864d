// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

const uriScheme = "keyring://"

// IsURI reports whether value is a keyring://service/key reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, uriScheme)
}

// ParseURI splits a keyring://service/key reference into its parts.
func ParseURI(uri string) (service, key string, err error) {
	if !IsURI(uri) {
		return "", "", pwerr.Errorf(pwerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", pwerr.Errorf(pwerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve replaces a keyring URI with its stored secret. Non-URI values pass
// through unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViper rewrites every keyring URI value in v to its stored secret,
// after config load. A failed lookup keeps the URI in place and logs a
// warning; the component consuming the value reports the real error.
func ResolveViper(v *viper.Viper, store Store) {
	for _, cfgKey := range v.AllKeys() {
		value := v.GetString(cfgKey)
		if !IsURI(value) {
			continue
		}
		resolved, err := Resolve(store, value)
		if err != nil {
			slog.Warn("keeping unresolved keyring URI", "config_key", cfgKey, "error", err)
			continue
		}
		v.Set(cfgKey, resolved)
	}
}
