package domain

// FailedURL is a URL whose classification failed with a non-refusal error
// and is queued for a later retry.
type FailedURL struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Topic       string `json:"topic"`
	ErrorKind   string `json:"error_kind"`
	Error       string `json:"error_msg"`
	RetryCount  int    `json:"retry_count"`
	LastAttempt int64  `json:"last_attempt"`
	CreatedAt   int64  `json:"created_at"`
}
