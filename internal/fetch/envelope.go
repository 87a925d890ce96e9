package fetch

import "time"

// Success builds the result for a received HTTP response, whatever its status.
func Success(rawURL string, retrievedAt time.Time, statusCode int, headers map[string]string, part ContentPart) Result {
	return Result{
		Parts: []ContentPart{part},
		Meta: Metadata{
			URL:         rawURL,
			RetrievedAt: retrievedAt,
			StatusCode:  statusCode,
			Headers:     headers,
		},
	}
}

// Failure builds the result for an attempt that produced no HTTP response:
// a policy rejection, a timeout or a network error.
func Failure(rawURL string, retrievedAt time.Time, message string) Result {
	return Result{
		Parts: []ContentPart{{Kind: PartText, Payload: message, MediaType: "text/plain"}},
		Meta: Metadata{
			URL:         rawURL,
			RetrievedAt: retrievedAt,
			StatusCode:  StatusNoResponse,
		},
		IsError: true,
	}
}
