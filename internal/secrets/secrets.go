// Package secrets stores inference API keys in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	zkr "github.com/zalando/go-keyring"
)

const serviceName = "inboxtriage"

// ErrNotFound is returned when no key is stored for an account.
var ErrNotFound = errors.New("no key stored in keychain")

// ErrUnknownAccount is returned for provider names without a keychain slot.
var ErrUnknownAccount = errors.New("unknown keychain account")

// Accounts lists the provider names keys can be stored under.
var Accounts = []string{"openai", "anthropic"}

// Account normalises a provider name to its keychain account.
func Account(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	for _, a := range Accounts {
		if p == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAccount, provider)
}

// Get reads the key for a provider.
func Get(provider string) (string, error) {
	account, err := Account(provider)
	if err != nil {
		return "", err
	}
	v, err := zkr.Get(serviceName, account)
	if errors.Is(err, zkr.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return v, nil
}

// Set stores the key for a provider.
func Set(provider, key string) error {
	account, err := Account(provider)
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is empty")
	}
	if err := zkr.Set(serviceName, account, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Delete removes the key for a provider. Deleting a missing key is not an error.
func Delete(provider string) error {
	account, err := Account(provider)
	if err != nil {
		return err
	}
	if err := zkr.Delete(serviceName, account); err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Available returns true if the OS keychain is functional.
// TRIAGE_KEYRING_DISABLED=1 turns it off for headless hosts.
func Available() bool {
	if os.Getenv("TRIAGE_KEYRING_DISABLED") == "1" {
		return false
	}
	const service = "inboxtriage-keyring-check"
	if err := zkr.Set(service, "check", "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(service, "check")
	return true
}
