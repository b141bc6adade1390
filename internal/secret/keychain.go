package secret

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// KeychainService is the service name entries are stored under:
//
//	security add-generic-password -s influxjson -a <account> -w <password>
const KeychainService = "influxjson"

// KeychainStore reads secrets from the macOS Keychain via the `security` CLI.
type KeychainStore struct {
	service string
}

// NewKeychainStore creates a KeychainStore for KeychainService.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: KeychainService}
}

// Get returns the password stored for account.
func (k *KeychainStore) Get(ctx context.Context, account string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "security", "find-generic-password",
		"-a", account,
		"-s", k.service,
		"-w", // output only the password
	)
	out, err := cmd.Output()
	if err != nil {
		// "security" returns exit code 44 when item not found
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return nil, fmt.Errorf("%w: keychain account %s", ErrNotFound, account)
		}
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}
