package packet

import (
	"errors"
	"fmt"
)

// ErrUnderrun reports a read past the end of a packet payload.
var ErrUnderrun = errors.New("packet payload underrun")

// ErrorClass groups SQL errors by where they came from, which decides
// whether the connection survives the error.
type ErrorClass int

const (
	ClassProtocol ErrorClass = iota
	ClassAuth
	ClassParse
	ClassRouting
	ClassSession
	ClassBackend
)

func (c ErrorClass) String() string {
	switch c {
	case ClassProtocol:
		return "protocol"
	case ClassAuth:
		return "auth"
	case ClassParse:
		return "parse"
	case ClassRouting:
		return "routing"
	case ClassSession:
		return "session"
	case ClassBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// FatalToConnection reports whether an error of this class leaves the
// connection in an unrecoverable state. Protocol and auth failures close the
// connection; everything else only aborts the current command.
func (c ErrorClass) FatalToConnection() bool {
	return c == ClassProtocol || c == ClassAuth
}

// SQLError is an error that can be sent to the client as an ERR packet.
type SQLError struct {
	Class   ErrorClass
	Code    uint16
	State   string
	Message string
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("%s error %d (%s): %s", e.Class, e.Code, e.State, e.Message)
}

// NewSQLError builds a SQLError with a formatted message.
func NewSQLError(class ErrorClass, code uint16, state, format string, args ...interface{}) *SQLError {
	return &SQLError{
		Class:   class,
		Code:    code,
		State:   state,
		Message: fmt.Sprintf(format, args...),
	}
}

// ToSQLError normalizes any error into a SQLError so it can be written to the
// wire. Unclassified errors become generic backend errors.
func ToSQLError(err error) *SQLError {
	var se *SQLError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, ErrUnderrun) {
		return NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "malformed packet: %v", err)
	}
	return NewSQLError(ClassBackend, ER_UNKNOWN_ERROR, "HY000", "%v", err)
}
