package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

const fixtureURL = "https://www.cnn.com/politics/foo/bar.html"

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/classify_response.json")
	require.NoError(t, err)
	return data
}

func TestBuildPayload(t *testing.T) {
	creds := gateway.Credentials{UserID: "user", APIKey: "key"}
	p := BuildPayload("climate change", fixtureURL, creds, DefaultOptions())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"topic": "climate change",
		"userID": "user",
		"apiKey": "key",
		"targetUrl": "https://www.cnn.com/politics/foo/bar.html",
		"model": "default",
		"topicRelevance": "word2vec",
		"predictStance": true,
		"computeAttention": false,
		"showOnlyArguments": true,
		"userMetadata": "https://www.cnn.com/politics/foo/bar.html"
	}`, string(data))

	p = BuildPayload("t", "u", creds, Options{TopicRelevance: domain.RelevanceMatchString})
	assert.False(t, p.ShowOnlyArguments)
	assert.Equal(t, domain.RelevanceMatchString, p.TopicRelevance)
	assert.Equal(t, DefaultModel, p.Model)
	assert.Equal(t, p.TargetURL, p.UserMetadata)
}

func TestParseResponse_Fixture(t *testing.T) {
	doc, sentences, err := ParseResponse(loadFixture(t), "climate change")
	require.NoError(t, err)

	assert.Equal(t, "f285e6a93ee7d536f8b701739704fcec", doc.DocID)
	assert.Equal(t, fixtureURL, doc.URL)
	assert.Equal(t, "0.1", doc.ModelVersion)
	assert.Equal(t, -1.0, doc.TimeAttentionComputation)
	assert.Equal(t, 2, doc.TotalClassifiedSentences)

	require.Len(t, sentences, 2)
	assert.Equal(t, doc.DocID, sentences[0].DocID)
	assert.Equal(t, domain.StanceContra, sentences[0].StanceLabel)
	assert.True(t, sentences[0].IsArgument())
	assert.Equal(t, domain.HashID(sentences[0].SentencePreprocessed), sentences[0].SentenceID)

	assert.False(t, sentences[1].IsArgument())
	assert.Equal(t, domain.StanceNotApplicable, sentences[1].StanceLabel)
	assert.Equal(t, 0.0, sentences[1].StanceConfidence)
}

func TestParseResponse_EmptySentences(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal(loadFixture(t), &body))
	body["sentences"] = []any{}
	data, _ := json.Marshal(body)

	doc, sentences, err := ParseResponse(data, "climate change")
	require.NoError(t, err)
	assert.Equal(t, fixtureURL, doc.URL)
	assert.Empty(t, sentences)
}

func TestParseResponse_Errors(t *testing.T) {
	fixture := string(loadFixture(t))

	tests := []struct {
		name    string
		body    string
		noData  bool
		wantErr bool
	}{
		{name: "empty", body: "", noData: true},
		{name: "null", body: " null ", noData: true},
		{name: "not json", body: "<html>", wantErr: true},
		{name: "no metadata", body: `{"sentences": []}`, wantErr: true},
		{name: "no sentences", body: strings.Replace(fixture, `"sentences"`, `"other"`, 1), wantErr: true},
		{name: "missing url", body: strings.Replace(fixture, `"userMetadata"`, `"otherMetadata"`, 1), wantErr: true},
		{name: "missing sentence field", body: strings.Replace(fixture, `"sortConfidence": 0.8809053269273679`, `"x": 1`, 1), wantErr: true},
		{name: "unknown label", body: strings.Replace(fixture, `"argumentLabel": "argument"`, `"argumentLabel": "claim"`, 1), wantErr: true},
		{name: "unknown stance", body: strings.Replace(fixture, `"stanceLabel": "contra"`, `"stanceLabel": "neutral"`, 1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseResponse(json.RawMessage(tt.body), "climate change")
			if tt.noData {
				assert.ErrorIs(t, err, ErrNoContent)
				return
			}
			require.Error(t, err)
			assert.Equal(t, gateway.KindUnavailable, gateway.KindOf(err))
		})
	}
}

func TestClassifier_ClassifyURL(t *testing.T) {
	fixture := loadFixture(t)
	var received Payload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		if received.TargetURL == "https://refused.example" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Website could not be crawled"}`))
			return
		}
		_, _ = w.Write(fixture)
	}))
	defer server.Close()

	session := gateway.NewSession(gateway.Config{Timeout: time.Second}, nil)
	defer session.Close()

	c := NewClassifier(session, gateway.StaticCredentials{UserID: "u", APIKey: "k"}, 0).
		WithEndpoint(server.URL)

	doc, sentences, err := c.ClassifyURL(context.Background(), "climate change", fixtureURL, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, fixtureURL, doc.URL)
	assert.Len(t, sentences, 2)
	assert.Equal(t, "u", received.UserID)
	assert.Equal(t, fixtureURL, received.UserMetadata)

	_, _, err = c.ClassifyURL(context.Background(), "climate change", "https://refused.example", DefaultOptions())
	assert.True(t, gateway.IsRefused(err))
}

func TestClassifier_WithLogger(t *testing.T) {
	fixture := loadFixture(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fixture)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	session := gateway.NewSession(gateway.Config{Timeout: time.Second}, nil)
	defer session.Close()
	c := NewClassifier(session, gateway.StaticCredentials{UserID: "u", APIKey: "secret-key"}, 0).
		WithEndpoint(server.URL).
		WithLogger(logger)

	_, _, err := c.ClassifyURL(context.Background(), "climate change", fixtureURL, DefaultOptions())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Classifying url")
	assert.Contains(t, out, "component=classify")
	assert.NotContains(t, out, "secret-key")
}

func TestClassifier_MissingCredentials(t *testing.T) {
	t.Setenv(gateway.EnvUserID, "")
	t.Setenv(gateway.EnvAPIKey, "")

	c := NewClassifier(gateway.NewSession(gateway.Config{}, nil), gateway.EnvCredentials{}, 0)
	_, _, err := c.ClassifyURL(context.Background(), "t", "u", DefaultOptions())
	assert.ErrorIs(t, err, gateway.ErrMissingCredentials)
}
