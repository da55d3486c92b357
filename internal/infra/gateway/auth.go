package gateway

import (
	"errors"
	"log/slog"
	"os"
)

const (
	EnvUserID = "ARGUMENTEXT_USERID"
	EnvAPIKey = "ARGUMENTEXT_KEY"
)

// ErrMissingCredentials is returned when no user id or api key is available.
var ErrMissingCredentials = errors.New("argumentext credentials not set")

// Credentials authenticate requests against the service.
type Credentials struct {
	UserID string
	APIKey string
}

// String never prints the api key.
func (c Credentials) String() string {
	return "Credentials{UserID:" + c.UserID + ", APIKey:[redacted]}"
}

// LogValue keeps the api key out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", c.UserID),
		slog.String("api_key", "[redacted]"),
	)
}

// CredentialSource supplies credentials at request time.
type CredentialSource interface {
	Credentials() (Credentials, error)
}

// EnvCredentials reads credentials from the process environment on every call.
type EnvCredentials struct{}

func (EnvCredentials) Credentials() (Credentials, error) {
	c := Credentials{
		UserID: os.Getenv(EnvUserID),
		APIKey: os.Getenv(EnvAPIKey),
	}
	if c.UserID == "" || c.APIKey == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return c, nil
}

// StaticCredentials always returns the same pair.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials() (Credentials, error) {
	return Credentials(s), nil
}
