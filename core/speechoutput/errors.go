package speechoutput

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied is wrapped by engines when the platform refused to
	// play audio, e.g. missing credentials or a blocked output device.
	ErrPermissionDenied = errors.New("speech output not permitted")
	// ErrInterrupted is wrapped by engines when playback was cut short by a
	// competing request rather than by a fault of the utterance itself.
	ErrInterrupted = errors.New("speech output interrupted")
	ErrClosed      = errors.New("speech output queue closed")
	ErrNoEngine    = errors.New("no speech output engine configured")
)

// ErrorKind is the normalized failure class of an engine error.
type ErrorKind string

const (
	ErrorKindPermissionDenied ErrorKind = "permission-denied"
	ErrorKindInterrupted      ErrorKind = "interrupted"
	ErrorKindOther            ErrorKind = "other"
)

func (k ErrorKind) String() string { return string(k) }

// Classify maps an engine error onto one of the three failure kinds.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindOther
	case errors.Is(err, ErrPermissionDenied):
		return ErrorKindPermissionDenied
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return ErrorKindInterrupted
	default:
		return ErrorKindOther
	}
}
