// Package secretstore stores profile passwords in the OS-native keyring,
// backing the Password auth method (spec §3, §9). It is an out-of-scope
// collaborator per spec §1 ("credential keyrings"), written by the
// `password` CLI command (cmd/password.go) and read by the daemon's
// askpass resolution (internal/daemon).
package secretstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "reverse-ssh-interface"

// ErrEmptyProfileName is returned by every operation when profileName is
// "", since the keyring backend would otherwise happily store a secret
// under an empty key that no profile could ever look up again.
var ErrEmptyProfileName = errors.New("secretstore: profile name must not be empty")

var (
	ring     keyring.Keyring
	ringOnce sync.Once
	ringErr  error
)

// open lazily opens the OS keyring, restricted to the native backends
// and pass in the order listed (no file fallback), grounded on the
// teacher's initKeyring
// (internal/keyring/keyring.go).
func open() (keyring.Keyring, error) {
	ringOnce.Do(func() {
		ring, ringErr = keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
			},
		})
	})
	return ring, ringErr
}

// Set stores password under the profile name, overwriting any existing
// entry.
func Set(profileName, password string) error {
	if profileName == "" {
		return ErrEmptyProfileName
	}
	kr, err := open()
	if err != nil {
		return fmt.Errorf("open keyring: %w", err)
	}
	return kr.Set(keyring.Item{Key: profileName, Data: []byte(password)})
}

// Lookup retrieves the password stored for profileName. The found bool
// distinguishes "nothing stored" from a stored empty password, which a
// bare (string, error) return can't — the daemon's askpass resolution
// (internal/daemon/server.go) needs exactly that distinction to tell a
// missing credential apart from one that just happens to be "".
func Lookup(profileName string) (password string, found bool, err error) {
	if profileName == "" {
		return "", false, ErrEmptyProfileName
	}
	kr, err := open()
	if err != nil {
		return "", false, fmt.Errorf("open keyring: %w", err)
	}
	item, err := kr.Get(profileName)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("retrieve password for %s: %w", profileName, err)
	}
	return string(item.Data), true, nil
}

// Delete removes the password stored for profileName.
func Delete(profileName string) error {
	if profileName == "" {
		return ErrEmptyProfileName
	}
	kr, err := open()
	if err != nil {
		return fmt.Errorf("open keyring: %w", err)
	}
	if err := kr.Remove(profileName); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("no password stored for %q", profileName)
		}
		return err
	}
	return nil
}
