package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the search API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	// RateLimitReset is set from x-rate-limit-reset on 429 responses.
	RateLimitReset time.Time
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("search API error %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// RateLimited reports whether the request was throttled.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &problem) == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
	}
	if apiErr.Title == "" && apiErr.Detail == "" && len(body) > 0 && len(body) <= 512 {
		apiErr.Detail = string(body)
	}

	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
			apiErr.RateLimitReset = time.Unix(sec, 0).UTC()
		}
	}
	return apiErr
}
