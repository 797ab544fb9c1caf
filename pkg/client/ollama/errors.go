package ollama

import "errors"

// ErrorKind classifies generation failures so callers can choose a retry
// policy without matching on message text.
type ErrorKind string

const (
	// KindInvalidInput: empty variable set, duplicate names or blank
	// context. The caller's fault; never worth retrying.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindTimeout: the remote call exceeded its bound. Retry with a longer
	// bound or a smaller request.
	KindTimeout ErrorKind = "timeout"
	// KindConnection: transport unreachable. Retry after confirming the
	// service is running.
	KindConnection ErrorKind = "connection"
	// KindUpstream: the service answered with a non-success status.
	KindUpstream ErrorKind = "upstream"
	// KindMalformedEnvelope: the service replied but the envelope carried
	// no generated text.
	KindMalformedEnvelope ErrorKind = "malformed_envelope"
	// KindParse: the generated text was not valid JSON.
	KindParse ErrorKind = "parse"
)

// Error is a classified generation failure. Kind is set deterministically at
// the point of failure, never inferred from message text afterwards.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from an error chain. The second return is
// false for errors that did not originate in this package.
func KindOf(err error) (ErrorKind, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return "", false
}
