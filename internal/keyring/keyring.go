// Package keyring stores brokerage and mailbox secrets in the OS keychain.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	zkr "github.com/zalando/go-keyring"

	"github.com/neboloop/cocosbot/internal/types"
)

const serviceName = "cocosbot"

// Secret names. Each doubles as the environment variable that overrides it.
const (
	Username     = "COCOS_USERNAME"
	Password     = "COCOS_PASSWORD"
	GmailUser    = "GMAIL_USER"
	GmailAppPass = "GMAIL_APP_PASS"
)

// Names lists every secret the bot reads.
var Names = []string{Username, Password, GmailUser, GmailAppPass}

// ErrNotFound is returned when a secret is in neither the environment nor
// the keychain.
var ErrNotFound = errors.New("secret not found")

// Store is the keychain surface Lookup needs.
type Store interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
	Delete(service, user string) error
}

type osStore struct{}

func (osStore) Get(service, user string) (string, error) { return zkr.Get(service, user) }
func (osStore) Set(service, user, pw string) error      { return zkr.Set(service, user, pw) }
func (osStore) Delete(service, user string) error       { return zkr.Delete(service, user) }

// OS is the operating system keychain.
var OS Store = osStore{}

func known(name string) error {
	for _, n := range Names {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown secret %q (want one of %s)", name, strings.Join(Names, ", "))
}

// Get retrieves the secret name from the keychain.
func Get(s Store, name string) (string, error) {
	if err := known(name); err != nil {
		return "", err
	}
	v, err := s.Get(serviceName, name)
	if errors.Is(err, zkr.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keychain get %s: %w", name, err)
	}
	return v, nil
}

// Set stores the secret name in the keychain.
func Set(s Store, name, value string) error {
	if err := known(name); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: empty value", name)
	}
	return s.Set(serviceName, name, value)
}

// Delete removes the secret name from the keychain.
func Delete(s Store, name string) error {
	if err := known(name); err != nil {
		return err
	}
	if err := s.Delete(serviceName, name); err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete %s: %w", name, err)
	}
	return nil
}

// Lookup returns the secret name from the environment, falling back to the
// keychain when the variable is unset or blank.
func Lookup(s Store, name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}
	if !Available() {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return Get(s, name)
}

// Credentials assembles the four login secrets with Lookup.
func Credentials(s Store) (types.Credentials, error) {
	var vals [4]string
	for i, name := range Names {
		v, err := Lookup(s, name)
		if err != nil {
			return types.Credentials{}, err
		}
		vals[i] = v
	}
	return types.Credentials{
		PrincipalID:    vals[0],
		Secret:         vals[1],
		MailboxAddress: vals[2],
		MailboxSecret:  vals[3],
	}, nil
}

// Available reports whether the keychain may be used. COCOS_KEYRING_DISABLED=1
// turns it off for headless hosts and CI.
func Available() bool {
	return os.Getenv("COCOS_KEYRING_DISABLED") != "1"
}
