package classify

import (
	"log/slog"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

// DefaultModel is the service-side model name.
const DefaultModel = "default"

// Options tunes a classify request.
type Options struct {
	OnlyArguments  bool                  `yaml:"only_arguments"`
	TopicRelevance domain.TopicRelevance `yaml:"topic_relevance"`
	Model          string                `yaml:"model"`
}

// DefaultOptions returns argument-only word2vec classification.
func DefaultOptions() Options {
	return Options{
		OnlyArguments:  true,
		TopicRelevance: domain.DefaultTopicRelevance,
		Model:          DefaultModel,
	}
}

// Payload is the JSON body of a classify request.
type Payload struct {
	Topic             string                `json:"topic"`
	UserID            string                `json:"userID"`
	APIKey            string                `json:"apiKey"`
	TargetURL         string                `json:"targetUrl"`
	Model             string                `json:"model"`
	TopicRelevance    domain.TopicRelevance `json:"topicRelevance"`
	PredictStance     bool                  `json:"predictStance"`
	ComputeAttention  bool                  `json:"computeAttention"`
	ShowOnlyArguments bool                  `json:"showOnlyArguments"`
	UserMetadata      string                `json:"userMetadata"`
}

// BuildPayload assembles a classify request. The URL is echoed back through
// userMetadata so responses can be attributed without relying on order.
func BuildPayload(topic, url string, creds gateway.Credentials, opts Options) Payload {
	relevance := opts.TopicRelevance
	if relevance == "" {
		relevance = domain.DefaultTopicRelevance
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return Payload{
		Topic:             topic,
		UserID:            creds.UserID,
		APIKey:            creds.APIKey,
		TargetURL:         url,
		Model:             model,
		TopicRelevance:    relevance,
		PredictStance:     true,
		ComputeAttention:  false,
		ShowOnlyArguments: opts.OnlyArguments,
		UserMetadata:      url,
	}
}

// LogValue omits the credentials.
func (p Payload) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("topic", p.Topic),
		slog.String("url", p.TargetURL),
		slog.String("relevance", string(p.TopicRelevance)),
		slog.Bool("only_arguments", p.ShowOnlyArguments),
	)
}
