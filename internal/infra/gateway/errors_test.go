package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{NewError(KindRefused, 400, RefusedMarker, nil), ActionRecordRefused},
		{fmt.Errorf("wrapped: %w", NewError(KindRefused, 400, "", nil)), ActionRecordRefused},
		{NewError(KindNotResponding, 0, "", errors.New("reset")), ActionRetry},
		{NewError(KindInternalGatewayError, 500, "", nil), ActionRetry},
		{NewError(KindGatewayError, 400, "bad topic", nil), ActionSurface},
		{NewError(KindUnavailable, 404, "", nil), ActionSurface},
		{NewError(KindUnavailable, 0, "malformed response", nil), ActionSurface},
		{NewError(KindUnavailable, 429, "slow down", nil), ActionRetry},
		{NewError(KindUnavailable, 503, "", nil), ActionRetry},
		{fmt.Errorf("wrapped: %w", NewError(KindUnavailable, 504, "", nil)), ActionRetry},
		{errors.New("plain"), ActionSurface},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestError_Format(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewError(KindNotResponding, 0, "", cause)

	assert.Equal(t, "not_responding: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.False(t, NewError(KindRefused, 400, "", nil).Retryable())
	assert.Equal(t, "gateway_error (http 400): x", NewError(KindGatewayError, 400, "x", nil).Error())
}

func TestCredentials_Redacted(t *testing.T) {
	c := Credentials{UserID: "u1", APIKey: "secret-key"}

	assert.NotContains(t, c.String(), "secret-key")
	assert.NotContains(t, fmt.Sprintf("%v", c), "secret-key")

	var buf strings.Builder
	slog.New(slog.NewTextHandler(&buf, nil)).Info("creds", "creds", c)
	assert.NotContains(t, buf.String(), "secret-key")
	assert.Contains(t, buf.String(), "u1")
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv(EnvUserID, "")
	t.Setenv(EnvAPIKey, "")
	_, err := EnvCredentials{}.Credentials()
	assert.ErrorIs(t, err, ErrMissingCredentials)

	t.Setenv(EnvUserID, "user")
	t.Setenv(EnvAPIKey, "key")
	c, err := EnvCredentials{}.Credentials()
	assert.NoError(t, err)
	assert.Equal(t, Credentials{UserID: "user", APIKey: "key"}, c)
}
