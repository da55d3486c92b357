package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/vietddude/argmine/internal/core/domain"
	"github.com/vietddude/argmine/internal/infra/gateway"
)

// ErrNoContent is returned for a successful call whose body is empty or null.
var ErrNoContent = errors.New("classify response has no content")

var validate = validator.New()

// flexString accepts a JSON string or number; modelVersion arrives as either.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("modelVersion: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type wireMetadata struct {
	ModelVersion             *flexString `json:"modelVersion"             validate:"required"`
	Language                 *string     `json:"language"                 validate:"required"`
	Topic                    *string     `json:"topic"                    validate:"required"`
	TimeArgumentPrediction   *float64    `json:"timeArgumentPrediction"   validate:"required"`
	TimeAttentionComputation *float64    `json:"timeAttentionComputation" validate:"required"`
	TimePreprocessing        *float64    `json:"timePreprocessing"        validate:"required"`
	TimeStancePrediction     *float64    `json:"timeStancePrediction"     validate:"required"`
	TimeLogging              *float64    `json:"timeLogging"              validate:"required"`
	TimeTotal                *float64    `json:"timeTotal"                validate:"required"`
	TotalArguments           *int        `json:"totalArguments"           validate:"required"`
	TotalContraArguments     *int        `json:"totalContraArguments"     validate:"required"`
	TotalProArguments        *int        `json:"totalProArguments"        validate:"required"`
	TotalNonArguments        *int        `json:"totalNonArguments"        validate:"required"`
	TotalClassifiedSentences *int        `json:"totalClassifiedSentences" validate:"required"`
	UserMetadata             *string     `json:"userMetadata"             validate:"required"`
}

type wireSentence struct {
	ArgumentConfidence   *float64 `json:"argumentConfidence"   validate:"required"`
	ArgumentLabel        *string  `json:"argumentLabel"        validate:"required"`
	SentenceOriginal     *string  `json:"sentenceOriginal"     validate:"required"`
	SentencePreprocessed *string  `json:"sentencePreprocessed" validate:"required"`
	SortConfidence       *float64 `json:"sortConfidence"       validate:"required"`
	StanceConfidence     *float64 `json:"stanceConfidence"`
	StanceLabel          *string  `json:"stanceLabel"`
}

type wireResponse struct {
	Metadata  *wireMetadata  `json:"metadata"  validate:"required"`
	Sentences []wireSentence `json:"sentences" validate:"required,dive"`
}

// ParseResponse converts a classify response body into a document and its
// sentences. Sentence records carry the request topic. A body that cannot be
// interpreted yields a gateway error of kind KindUnavailable.
func ParseResponse(
	raw json.RawMessage,
	topic string,
) (domain.DocumentMetadata, []domain.ClassifiedSentence, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.DocumentMetadata{}, nil, ErrNoContent
	}

	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.DocumentMetadata{}, nil, malformed("decode response", err)
	}
	if err := validate.Struct(resp); err != nil {
		return domain.DocumentMetadata{}, nil, malformed("missing required field", err)
	}

	m := resp.Metadata
	url := *m.UserMetadata
	docID := domain.HashID(url)

	doc := domain.DocumentMetadata{
		DocID:                    docID,
		URL:                      url,
		Topic:                    *m.Topic,
		ModelVersion:             string(*m.ModelVersion),
		Language:                 *m.Language,
		TimeArgumentPrediction:   *m.TimeArgumentPrediction,
		TimeAttentionComputation: *m.TimeAttentionComputation,
		TimePreprocessing:        *m.TimePreprocessing,
		TimeStancePrediction:     *m.TimeStancePrediction,
		TimeLogging:              *m.TimeLogging,
		TimeTotal:                *m.TimeTotal,
		TotalArguments:           *m.TotalArguments,
		TotalContraArguments:     *m.TotalContraArguments,
		TotalProArguments:        *m.TotalProArguments,
		TotalNonArguments:        *m.TotalNonArguments,
		TotalClassifiedSentences: *m.TotalClassifiedSentences,
	}

	sentences := make([]domain.ClassifiedSentence, 0, len(resp.Sentences))
	for i, s := range resp.Sentences {
		label, err := domain.ParseArgumentLabel(*s.ArgumentLabel)
		if err != nil {
			return domain.DocumentMetadata{}, nil, malformed("sentence "+strconv.Itoa(i), err)
		}

		stance := domain.StanceNotApplicable
		if s.StanceLabel != nil {
			if stance, err = domain.ParseStanceLabel(*s.StanceLabel); err != nil {
				return domain.DocumentMetadata{}, nil, malformed("sentence "+strconv.Itoa(i), err)
			}
		}
		var stanceConfidence float64
		if s.StanceConfidence != nil {
			stanceConfidence = *s.StanceConfidence
		}

		sentences = append(sentences, domain.ClassifiedSentence{
			DocID:                docID,
			URL:                  url,
			Topic:                topic,
			SentenceID:           domain.HashID(*s.SentencePreprocessed),
			ArgumentConfidence:   *s.ArgumentConfidence,
			ArgumentLabel:        label,
			SentenceOriginal:     *s.SentenceOriginal,
			SentencePreprocessed: *s.SentencePreprocessed,
			SortConfidence:       *s.SortConfidence,
			StanceConfidence:     stanceConfidence,
			StanceLabel:          stance,
		})
	}

	return doc, sentences, nil
}

func malformed(msg string, err error) error {
	return gateway.NewError(gateway.KindUnavailable, 0, "malformed classify response: "+msg, err)
}
