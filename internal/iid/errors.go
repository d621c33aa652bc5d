package iid

import "fmt"

// Kind identifies which classification branch produced an ExchangeError.
type Kind string

const (
	// KindTransportFailure covers network, TLS, and timeout failures
	// reported by the transport before any response was interpreted.
	KindTransportFailure Kind = "TRANSPORT_FAILURE"
	// KindInvalidResponse means the transport completed but produced nothing
	// recognizable as an HTTP response.
	KindInvalidResponse Kind = "INVALID_RESPONSE"
	// KindUnexpectedStatus means the status code fell outside [200, 300).
	KindUnexpectedStatus Kind = "UNEXPECTED_STATUS"
	// KindMissingBody means a success status arrived without a body.
	KindMissingBody Kind = "MISSING_BODY"
	// KindMalformedBody means the body was not valid JSON or was valid JSON
	// lacking the expected results shape. The two cases share a kind; the
	// raw body is kept for diagnosis.
	KindMalformedBody Kind = "MALFORMED_BODY"
)

// ExchangeError is the single error type returned by Exchange. Exactly one
// Kind is set; StatusCode and Body are populated only where the kind
// warrants them.
type ExchangeError struct {
	Kind       Kind
	StatusCode int
	Body       string
	cause      error
}

func (e *ExchangeError) Error() string {
	switch e.Kind {
	case KindTransportFailure:
		return fmt.Sprintf("iid: transport failure: %v", e.cause)
	case KindInvalidResponse:
		return "iid: response was not a valid HTTP response"
	case KindUnexpectedStatus:
		return fmt.Sprintf("iid: unexpected status %d: %s", e.StatusCode, e.Body)
	case KindMissingBody:
		return "iid: response body is missing"
	case KindMalformedBody:
		return fmt.Sprintf("iid: malformed response body: %s", e.Body)
	default:
		return fmt.Sprintf("iid: exchange failed (%s)", e.Kind)
	}
}

// Unwrap exposes the underlying transport or decoding error, if any.
func (e *ExchangeError) Unwrap() error {
	return e.cause
}
