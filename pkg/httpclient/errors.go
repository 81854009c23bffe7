package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error body is kept.
const maxErrorBody = 1 << 10

// StatusError describes a non-2xx answer from an upstream API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// IsClientError reports whether the upstream rejected the request itself.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ParseResponseError consumes and closes resp.Body and returns a
// *StatusError holding a trimmed excerpt of it. Callers invoke it only for
// non-2xx responses.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
