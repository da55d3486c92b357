package domain

import "fmt"

// ArgumentLabel is the binary argument classification of a sentence.
type ArgumentLabel string

const (
	LabelArgument   ArgumentLabel = "argument"
	LabelNoArgument ArgumentLabel = "no argument"
)

// ParseArgumentLabel validates a label received from the service.
func ParseArgumentLabel(s string) (ArgumentLabel, error) {
	switch l := ArgumentLabel(s); l {
	case LabelArgument, LabelNoArgument:
		return l, nil
	}
	return "", fmt.Errorf("unknown argument label %q", s)
}

// StanceLabel is the stance of an argument towards the topic.
// The zero value means no stance applies (non-arguments).
type StanceLabel string

const (
	StanceNotApplicable StanceLabel = ""
	StancePro           StanceLabel = "pro"
	StanceContra        StanceLabel = "contra"
)

// ParseStanceLabel validates a stance received from the service.
func ParseStanceLabel(s string) (StanceLabel, error) {
	switch l := StanceLabel(s); l {
	case StanceNotApplicable, StancePro, StanceContra:
		return l, nil
	}
	return "", fmt.Errorf("unknown stance label %q", s)
}

// TopicRelevance selects the service-side relevance filter.
type TopicRelevance string

const (
	RelevanceMatchString  TopicRelevance = "match_string"
	RelevanceNGramOverlap TopicRelevance = "n_gram_overlap"
	RelevanceWord2Vec     TopicRelevance = "word2vec"

	DefaultTopicRelevance = RelevanceWord2Vec
)

// ParseTopicRelevance accepts the three known filters; empty selects the default.
func ParseTopicRelevance(s string) (TopicRelevance, error) {
	switch r := TopicRelevance(s); r {
	case "":
		return DefaultTopicRelevance, nil
	case RelevanceMatchString, RelevanceNGramOverlap, RelevanceWord2Vec:
		return r, nil
	}
	return "", fmt.Errorf("unknown topic relevance %q", s)
}

// ClassifiedSentence is one sentence of a document together with its labels.
type ClassifiedSentence struct {
	DocID                string        `json:"doc_id"                db:"doc_id"`
	URL                  string        `json:"url"                   db:"url"`
	Topic                string        `json:"topic"                 db:"topic"`
	SentenceID           string        `json:"sentence_id"           db:"sentence_id"`
	ArgumentConfidence   float64       `json:"argument_confidence"   db:"argument_confidence"`
	ArgumentLabel        ArgumentLabel `json:"argument_label"        db:"argument_label"`
	SentenceOriginal     string        `json:"sentence_original"     db:"sentence_original"`
	SentencePreprocessed string        `json:"sentence_preprocessed" db:"sentence_preprocessed"`
	SortConfidence       float64       `json:"sort_confidence"       db:"sort_confidence"`
	StanceConfidence     float64       `json:"stance_confidence"     db:"stance_confidence"`
	StanceLabel          StanceLabel   `json:"stance_label"          db:"stance_label"`
}

// IsArgument reports whether the sentence was labelled as an argument.
func (s ClassifiedSentence) IsArgument() bool {
	return s.ArgumentLabel == LabelArgument
}

// SentenceColumns is the column order used for tabular sentence output.
var SentenceColumns = []string{
	"doc_id", "url", "topic", "sentence_id", "argument_confidence", "argument_label",
	"sentence_original", "sentence_preprocessed", "sort_confidence",
	"stance_confidence", "stance_label",
}

// Row renders the sentence in SentenceColumns order.
func (s ClassifiedSentence) Row() []string {
	return []string{
		s.DocID, s.URL, s.Topic, s.SentenceID,
		formatFloat(s.ArgumentConfidence),
		string(s.ArgumentLabel),
		s.SentenceOriginal,
		s.SentencePreprocessed,
		formatFloat(s.SortConfidence),
		formatFloat(s.StanceConfidence),
		string(s.StanceLabel),
	}
}
