package casting

import "errors"

var (
	// ErrNotFound indicates the actor or movie does not exist.
	ErrNotFound = errors.New("casting: not found")

	// ErrInvalidInput indicates a request body is missing, unparsable or
	// lacks required fields.
	ErrInvalidInput = errors.New("casting: invalid input")

	// ErrUnprocessable indicates the store rejected a write, e.g. a cast row
	// pointing at an unknown actor.
	ErrUnprocessable = errors.New("casting: unprocessable")
)
