package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(retries uint64) Config {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.Retry = RetryConfig{MaxRetries: retries, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	return cfg
}

func TestSession_Send_Success(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		_, _ = w.Write([]byte(`{"metadata":{},"sentences":[]}`))
	}))
	defer server.Close()

	s := NewSession(testConfig(0), nil)
	defer s.Close()

	raw, err := s.Send(context.Background(), server.URL, map[string]string{"topic": "climate"}, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{},"sentences":[]}`, string(raw))
	assert.Equal(t, "climate", got["topic"])
	assert.Nil(t, s.httpClient.Jar)

	h := s.Health()
	assert.Equal(t, 1, h.Successes)
	assert.Equal(t, 0.0, h.ErrorRate)
}

func TestSession_Send_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSession(testConfig(0), nil)
	raw, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSession_Send_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"refused", http.StatusBadRequest, `{"error":"Website could not be crawled: 404"}`, KindRefused},
		{"bad request", http.StatusBadRequest, `{"error":"Invalid topic"}`, KindGatewayError},
		{"unreadable 400", http.StatusBadRequest, `<html>bad</html>`, KindUnavailable},
		{"internal", http.StatusInternalServerError, `oops`, KindInternalGatewayError},
		{"bad gateway", http.StatusBadGateway, ``, KindUnavailable},
		{"forbidden", http.StatusForbidden, `no`, KindUnavailable},
		{"not found", http.StatusNotFound, `missing`, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := NewSession(testConfig(0), nil)
			_, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
			require.Error(t, err)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.want, gerr.Kind)
			assert.Equal(t, tt.status, gerr.StatusCode)
		})
	}
}

func TestSession_Send_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s := NewSession(testConfig(3), nil)
	raw, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSession_Send_InternalErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewSession(testConfig(3), nil)
	_, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
	assert.Equal(t, KindInternalGatewayError, KindOf(err))
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 4, s.Health().Failures)
}

func TestSession_Send_OverloadedAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewSession(testConfig(1), nil)
	_, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, ActionRetry, ClassifyError(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSession_Send_RefusedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Website could not be crawled"}`))
	}))
	defer server.Close()

	s := NewSession(testConfig(3), nil)
	_, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
	assert.True(t, IsRefused(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSession_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s := NewSession(testConfig(0), nil)
	start := time.Now()
	_, err := s.Send(context.Background(), server.URL, struct{}{}, 50*time.Millisecond)
	assert.Equal(t, KindNotResponding, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSession_Send_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s := NewSession(testConfig(1), nil)
	_, err := s.Send(context.Background(), url, struct{}{}, 0)
	assert.Equal(t, KindNotResponding, KindOf(err))
	assert.Equal(t, ActionRetry, ClassifyError(err))
}

func TestSession_Send_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(testConfig(3), nil)
	_, err := s.Send(ctx, server.URL, struct{}{}, 0)
	assert.Equal(t, KindNotResponding, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testConfig(0)
	cfg.RequestsPerSecond = 20
	cfg.Burst = 1
	s := NewSession(cfg, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Send(context.Background(), server.URL, struct{}{}, 0)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWithSession(t *testing.T) {
	var used *Session
	err := WithSession(testConfig(0), nil, func(s *Session) error {
		used = s
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.NotNil(t, used)
}
