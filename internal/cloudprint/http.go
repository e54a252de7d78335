package cloudprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// HTTPError is a response with an unexpected status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// doGetJSON performs a GET request and unmarshals the JSON response into the result type.
// The endpoint is the path after the base API URL (e.g., "printjobs/123").
func doGetJSON[T any](ctx context.Context, c *Client, apiKey, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, apiKey, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doPostJSONCreated performs a POST request that accepts either 200 OK or 201 Created.
func doPostJSONCreated[T any](ctx context.Context, c *Client, apiKey, endpoint string, requestBody any) (*T, error) {
	return doRequestJSON[T](ctx, c, apiKey, http.MethodPost, endpoint, requestBody, http.StatusOK, http.StatusCreated)
}

// doRequestJSON performs an HTTP request with a JSON body and response.
// It accepts one or more valid status codes. If the response status doesn't match any, an *HTTPError is returned.
func doRequestJSON[T any](ctx context.Context, c *Client, apiKey, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	// The provider authenticates with the API key as basic auth user and no password.
	req.SetBasicAuth(apiKey, "")
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if !isExpectedStatus(resp.StatusCode, expectedStatuses) {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}

// isExpectedStatus checks if a status code is in the list of expected statuses.
func isExpectedStatus(code int, expected []int) bool {
	return slices.Contains(expected, code)
}

// readErrorBody reads the first part of an error response for diagnostics.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "<unreadable body>"
	}
	return string(bytes.TrimSpace(body))
}
