package netcom

import "fmt"

// HTTPError reports a response whose status is outside the 2xx range
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d for URL %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPError) AsMap() map[string]any {
	return map[string]any{
		"status": e.StatusCode,
		"url":    e.URL,
		"body":   e.Body,
	}
}
