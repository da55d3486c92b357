package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// HashID returns the hex MD5 digest of s. Document and sentence ids are
// derived with it so that reruns produce identical keys.
func HashID(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DocumentMetadata is the per-document summary returned by the classifier.
type DocumentMetadata struct {
	DocID        string `json:"doc_id"        db:"doc_id"`
	URL          string `json:"url"           db:"url"`
	Topic        string `json:"topic"         db:"topic"`
	ModelVersion string `json:"model_version" db:"model_version"`
	Language     string `json:"language"      db:"language"`

	TimeArgumentPrediction   float64 `json:"time_argument_prediction"   db:"time_argument_prediction"`
	TimeAttentionComputation float64 `json:"time_attention_computation" db:"time_attention_computation"`
	TimePreprocessing        float64 `json:"time_preprocessing"         db:"time_preprocessing"`
	TimeStancePrediction     float64 `json:"time_stance_prediction"     db:"time_stance_prediction"`
	TimeLogging              float64 `json:"time_logging"               db:"time_logging"`
	TimeTotal                float64 `json:"time_total"                 db:"time_total"`

	TotalArguments           int `json:"total_arguments"            db:"total_arguments"`
	TotalContraArguments     int `json:"total_contra_arguments"     db:"total_contra_arguments"`
	TotalProArguments        int `json:"total_pro_arguments"        db:"total_pro_arguments"`
	TotalNonArguments        int `json:"total_non_arguments"        db:"total_non_arguments"`
	TotalClassifiedSentences int `json:"total_classified_sentences" db:"total_classified_sentences"`
}

// DocumentColumns is the column order used for tabular document output.
var DocumentColumns = []string{
	"doc_id", "url", "topic", "model_version", "language",
	"time_argument_prediction", "time_attention_computation", "time_preprocessing",
	"time_stance_prediction", "time_logging", "time_total",
	"total_arguments", "total_contra_arguments", "total_pro_arguments",
	"total_non_arguments", "total_classified_sentences",
}

// Row renders the document in DocumentColumns order.
func (d DocumentMetadata) Row() []string {
	return []string{
		d.DocID, d.URL, d.Topic, d.ModelVersion, d.Language,
		formatFloat(d.TimeArgumentPrediction),
		formatFloat(d.TimeAttentionComputation),
		formatFloat(d.TimePreprocessing),
		formatFloat(d.TimeStancePrediction),
		formatFloat(d.TimeLogging),
		formatFloat(d.TimeTotal),
		strconv.Itoa(d.TotalArguments),
		strconv.Itoa(d.TotalContraArguments),
		strconv.Itoa(d.TotalProArguments),
		strconv.Itoa(d.TotalNonArguments),
		strconv.Itoa(d.TotalClassifiedSentences),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
