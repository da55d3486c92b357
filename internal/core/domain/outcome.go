package domain

// OutcomeKind tags the variant held by a BatchOutcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeRefused OutcomeKind = "refused"
	OutcomeFailure OutcomeKind = "failure"
	OutcomeSkipped OutcomeKind = "skipped"
)

// BatchOutcome is the result of classifying one URL within a batch.
// Exactly one variant is populated, selected by Kind.
type BatchOutcome struct {
	Kind      OutcomeKind
	URL       string
	Document  DocumentMetadata
	Sentences []ClassifiedSentence
	Err       error
	Reason    string
}

// Success builds a successful outcome.
func Success(doc DocumentMetadata, sentences []ClassifiedSentence) BatchOutcome {
	return BatchOutcome{Kind: OutcomeSuccess, URL: doc.URL, Document: doc, Sentences: sentences}
}

// Refused builds an outcome for a URL the service declined to crawl.
func Refused(url string, err error) BatchOutcome {
	return BatchOutcome{Kind: OutcomeRefused, URL: url, Err: err}
}

// Failure builds an outcome for any other classified error.
func Failure(url string, err error) BatchOutcome {
	return BatchOutcome{Kind: OutcomeFailure, URL: url, Err: err}
}

// Skipped builds an outcome for a URL that produced nothing to record.
func Skipped(url, reason string) BatchOutcome {
	return BatchOutcome{Kind: OutcomeSkipped, URL: url, Reason: reason}
}

// Counts tallies outcomes per kind.
func Counts(outcomes []BatchOutcome) map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int, 4)
	for _, o := range outcomes {
		counts[o.Kind]++
	}
	return counts
}
