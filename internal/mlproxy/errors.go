package mlproxy

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnreachable    = errors.New("ml service unreachable")
	ErrTimeout        = errors.New("ml service timed out")
	ErrInvalidResult  = errors.New("ml service returned an invalid result")
	ErrUpstreamStatus = errors.New("ml service returned an error status")
)

// UpstreamError carries the details of a failed call to the ML service.
// Kind is one of the sentinel errors above.
type UpstreamError struct {
	Kind   error
	URL    string
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrUpstreamStatus):
		return fmt.Sprintf("ML API error: %d - %s", e.Status, e.Detail)
	case errors.Is(e.Kind, ErrUnreachable):
		return fmt.Sprintf("ML service connection failed: %s is not accessible", e.URL)
	case errors.Is(e.Kind, ErrTimeout):
		return "ML model processing timed out. Please retry."
	case errors.Is(e.Kind, ErrInvalidResult):
		return "ML model returned invalid result structure"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusFor maps an error from Recommender.Recommend to the HTTP status,
// the retryable flag and the message shown to the user.
func StatusFor(err error) (code int, retryable bool, message string) {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, false, err.Error()
	}

	switch {
	case errors.Is(ue.Kind, ErrTimeout):
		return http.StatusRequestTimeout, true, ue.Error()
	case errors.Is(ue.Kind, ErrUnreachable):
		return http.StatusServiceUnavailable, true, ue.Error()
	case errors.Is(ue.Kind, ErrInvalidResult):
		return http.StatusInternalServerError, false, ue.Error()
	case errors.Is(ue.Kind, ErrUpstreamStatus):
		if ue.Status >= 400 && ue.Status < 500 {
			return ue.Status, false, ue.Error()
		}
		return http.StatusInternalServerError, true, ue.Error()
	}
	return http.StatusInternalServerError, false, ue.Error()
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errBreakerOpen):
		return "breaker_open"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrInvalidResult):
		return "invalid_result"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	}
	return "other"
}
