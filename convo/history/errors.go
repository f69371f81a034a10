package history

import "errors"

var (
	// ErrInvalidSession is returned before any backend I/O when the
	// session identity is malformed.
	ErrInvalidSession = errors.New("history: invalid session")

	// ErrInvalidMessage is returned when a record fails validation.
	ErrInvalidMessage = errors.New("history: invalid message")

	// ErrStorage wraps durable-backend I/O failures, including a
	// corrupted record encountered on read.
	ErrStorage = errors.New("history: storage fault")

	// ErrBackendUnavailable wraps volatile-backend connectivity
	// failures. An absent or expired session is not an error.
	ErrBackendUnavailable = errors.New("history: backend unavailable")
)
