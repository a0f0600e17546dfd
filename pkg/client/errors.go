package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrNetwork covers transport failures, timeouts and non-success HTTP
	// statuses. *APIError values match it with errors.Is.
	ErrNetwork = errors.New("network error")

	// ErrDecode is matched by *DecodeError: the response body was not a
	// valid page.
	ErrDecode = errors.New("decode error")

	// ErrCancelled is returned when the request context was cancelled.
	ErrCancelled = errors.New("request cancelled")

	// ErrRateLimited is returned when the local quota gate refused the
	// request. It is a network error.
	ErrRateLimited = fmt.Errorf("%w: request blocked, rate limit critical", ErrNetwork)

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrEmptyQuery is returned by Search for a blank query.
	ErrEmptyQuery = errors.New("search query must not be empty")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is a non-success HTTP response from Pexels.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pexels %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("pexels %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports APIError values as network errors.
func (e *APIError) Is(target error) bool {
	return target == ErrNetwork
}

// DecodeError reports a response body that could not be turned into a page.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports DecodeError values as ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classOf returns the error class of an error produced by a request attempt.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.ErrorClass
	case errors.As(err, &decodeErr):
		return ErrorClassDecode
	default:
		return ErrorClassNetwork
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx and decode failures repeat identically on retry
		return false
	}
}

// newAPIError builds an APIError from a failed response and closes its body.
// Pexels reports failures as {"error": "..."} when it sends a body at all.
func newAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
