package rules

import (
	"errors"

	"creche-backend/internal/store"
)

// Kind classifies a failure independently of any transport.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindInvalidArgument Kind = "invalid_argument"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Store sentinels map to NotFound and Conflict;
// anything unrecognised is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *Error
	switch {
	case errors.As(err, &re):
		return re.Kind
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrDuplicate):
		return KindConflict
	default:
		return KindInternal
	}
}

func newErr(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func InvalidArgument(msg string) error { return newErr(KindInvalidArgument, msg) }
func Unauthenticated(msg string) error { return newErr(KindUnauthenticated, msg) }
func Forbidden(msg string) error       { return newErr(KindForbidden, msg) }
func NotFound(msg string) error        { return newErr(KindNotFound, msg) }
func Conflict(msg string) error        { return newErr(KindConflict, msg) }

// Internal wraps a store or transport failure.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

// fromStore turns store sentinels into the kind the caller expects and
// wraps everything else as Internal.
func fromStore(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return NotFound(msg)
	case errors.Is(err, store.ErrDuplicate):
		return Conflict(msg)
	default:
		var re *Error
		if errors.As(err, &re) {
			return err
		}
		return Internal(err)
	}
}
