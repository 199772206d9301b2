// Package secrets keeps channel tokens in the OS keyring.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name the tokens are stored under.
const Service = "deskclock"

var ErrNotFound = errors.New("secret not found")

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

func Set(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("secret %q: empty value", name)
	}
	if err := keyringSet(Service, name, value); err != nil {
		return fmt.Errorf("store secret %q: %w", name, err)
	}
	return nil
}

func Get(name string) (string, error) {
	v, err := keyringGet(Service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	return v, nil
}

func Delete(name string) error {
	err := keyringDelete(Service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Token returns configured if set, otherwise the token stored for name.
func Token(name, configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	v, err := Get(name)
	if err != nil {
		return "", fmt.Errorf("no token for %s in config or keyring: %w", name, err)
	}
	return v, nil
}
