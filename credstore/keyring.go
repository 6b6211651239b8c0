package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringAccount = "api_key"

// Keyring stores the credential in the operating system keychain under a
// fixed service/account pair.
type Keyring struct {
	service string
}

// NewKeyring creates a keyring-backed store scoped to the given service
// name (e.g. "marginote").
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

func (k *Keyring) Get(ctx context.Context) (string, error) {
	cred, err := keyring.Get(k.service, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: keyring get: %w", err)
	}
	return cred, nil
}

func (k *Keyring) Set(ctx context.Context, credential string) error {
	if err := keyring.Set(k.service, keyringAccount, credential); err != nil {
		return fmt.Errorf("credstore: keyring set: %w", err)
	}
	return nil
}

func (k *Keyring) Clear(ctx context.Context) error {
	err := keyring.Delete(k.service, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("credstore: keyring delete: %w", err)
	}
	return nil
}
