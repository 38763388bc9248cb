package common

import "errors"

var (
	// ErrStatusOutOfRange is the panic value (wrapped) of Status for codes outside 100-999.
	ErrStatusOutOfRange = errors.New("capi: status code out of range")

	// ErrStatusNotSet is returned by JSON and Text when Status was never called.
	ErrStatusNotSet = errors.New("capi: status code must be set before writing a body")

	// ErrAlreadyWritten is returned by any terminal writer after the response was sent.
	ErrAlreadyWritten = errors.New("capi: response already written")

	// ErrTimerNotStarted is returned by EndTimer without a prior StartTimer.
	ErrTimerNotStarted = errors.New("capi: StartTimer must be called before EndTimer")
)
