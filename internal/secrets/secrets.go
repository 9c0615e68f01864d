// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package secrets stores credentials outside config files. The default
// backend is the OS keyring (Keychain, secret-service, Credential Manager
// via zalando/go-keyring); config values reference stored secrets with
// keyring://service/key URIs that are resolved after config load.
package secrets

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// DefaultService is the keyring service name plotweave stores its own
// secrets under.
const DefaultService = "plotweave"

// indexKey holds a JSON array of stored key names per service, since
// go-keyring cannot enumerate keys on its own.
const indexKey = "__keys"

// Store is the secret storage boundary.
type Store interface {
	Set(service, key, value string) error
	Get(service, key string) (string, error)
	Delete(service, key string) error
	Keys(service string) ([]string, error)
}

// Keyring implements Store on the OS keyring.
type Keyring struct{}

var _ Store = Keyring{}

func (Keyring) Set(service, key, value string) error {
	if err := validateRef(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return updateIndex(service, func(keys []string) []string {
		for _, k := range keys {
			if k == key {
				return keys
			}
		}
		return append(keys, key)
	})
}

func (Keyring) Get(service, key string) (string, error) {
	if err := validateRef(service, key); err != nil {
		return "", err
	}
	value, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", pwerr.Errorf(pwerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return value, nil
}

func (Keyring) Delete(service, key string) error {
	if err := validateRef(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return pwerr.Errorf(pwerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return updateIndex(service, func(keys []string) []string {
		kept := keys[:0]
		for _, k := range keys {
			if k != key {
				kept = append(kept, k)
			}
		}
		return kept
	})
}

// Keys lists the key names stored under service. Unknown services yield an
// empty list.
func (Keyring) Keys(service string) ([]string, error) {
	return loadIndex(service)
}

func validateRef(service, key string) error {
	if service == "" || key == "" {
		return pwerr.New(pwerr.CodeSecretInvalidInput, "secret service and key must not be empty")
	}
	if strings.Contains(service, "/") {
		return pwerr.Errorf(pwerr.CodeSecretInvalidInput, "secret service %q must not contain '/'", service)
	}
	return nil
}

func loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func updateIndex(service string, apply func([]string) []string) error {
	keys, err := loadIndex(service)
	if err != nil {
		return err
	}
	keys = apply(keys)

	if len(keys) == 0 {
		// keyring.Delete on a missing index is fine.
		_ = keyring.Delete(service, indexKey)
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeSecretStoreFailure, "saving key index for %s", service)
	}
	return nil
}
