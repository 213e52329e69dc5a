/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"net/url"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService  = "GoWhiteboard"
	keyringPostgres = "postgres_password"
)

// SecretStore abstracts the keyring so tests can swap it out.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secretStore SecretStore = osKeyring{}

// SetSecretStore replaces the keyring backend and returns the previous one.
func SetSecretStore(s SecretStore) SecretStore {
	prev := secretStore
	secretStore = s
	return prev
}

// ForgetPostgresPassword removes the stored password. A missing entry is not an error.
func ForgetPostgresPassword() error {
	if err := secretStore.Delete(keyringService, keyringPostgres); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// PostgresURL returns dsn with password filled in when dsn is a URL without one.
// Key/value DSNs are returned unchanged.
func PostgresURL(dsn, password string) (string, error) {
	if dsn == "" {
		return "", errors.New("postgres dsn is empty")
	}
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn, nil
	}
	if password == "" || u.User == nil {
		return dsn, nil
	}
	if _, set := u.User.Password(); set {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}
