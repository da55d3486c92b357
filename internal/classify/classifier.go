package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

// Sender is the transport used by the classifier. *gateway.Session implements it.
type Sender interface {
	Send(ctx context.Context, endpoint string, payload any, timeout time.Duration) (json.RawMessage, error)
}

// Classifier classifies one URL per call.
type Classifier struct {
	sender   Sender
	creds    gateway.CredentialSource
	endpoint string
	timeout  time.Duration
	log      *slog.Logger
}

// NewClassifier creates a classifier posting to the classify endpoint.
// A zero timeout defers to the sender's default.
func NewClassifier(sender Sender, creds gateway.CredentialSource, timeout time.Duration) *Classifier {
	return &Classifier{
		sender:   sender,
		creds:    creds,
		endpoint: gateway.ClassifyURL,
		timeout:  timeout,
		log:      slog.Default().With("component", "classify"),
	}
}

// WithEndpoint overrides the classify URL.
func (c *Classifier) WithEndpoint(endpoint string) *Classifier {
	c.endpoint = endpoint
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Classifier) WithLogger(logger *slog.Logger) *Classifier {
	if logger != nil {
		c.log = logger.With("component", "classify")
	}
	return c
}

// ClassifyURL sends one classify request and parses the answer.
// It returns ErrNoContent for an empty body and a *gateway.Error for every
// transport or interpretation failure.
func (c *Classifier) ClassifyURL(
	ctx context.Context,
	topic, url string,
	opts Options,
) (domain.DocumentMetadata, []domain.ClassifiedSentence, error) {
	creds, err := c.creds.Credentials()
	if err != nil {
		return domain.DocumentMetadata{}, nil, fmt.Errorf("load credentials: %w", err)
	}

	payload := BuildPayload(topic, url, creds, opts)
	c.log.Debug("Classifying url", "request", payload)

	raw, err := c.sender.Send(ctx, c.endpoint, payload, c.timeout)
	if err != nil {
		return domain.DocumentMetadata{}, nil, err
	}

	return ParseResponse(raw, topic)
}
