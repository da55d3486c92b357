package gateway

const (
	// BaseURL is the ArgumenText API root for English models.
	BaseURL = "https://api.argumentsearch.com/en"

	ClassifyURL = BaseURL + "/classify"
	ClusterURL  = BaseURL + "/cluster_arguments"
	SearchURL   = BaseURL + "/search"
)

// endpointLabel turns an endpoint URL into a short metrics label.
func endpointLabel(endpoint string) string {
	switch endpoint {
	case ClassifyURL:
		return "classify"
	case ClusterURL:
		return "cluster_arguments"
	case SearchURL:
		return "search"
	}
	return "custom"
}
