// Package status implements DDS §2.2.1's outcome taxonomy: every public
// operation across the repo returns one of these 13 kinds (mirroring the
// DDS ReturnCode enumeration) as the outer code of a golib liberr.Error, so
// a caller can switch on outcome without parsing a message string. Each
// subsystem with an error.go (cache, cfgstore, durability, entity, rtps,
// transport, cdr, among others) additionally registers its own
// finer-grained diagnostic codes there and passes the diagnostic error as the parent of one of these
// codes via Wrap, so GetParentCode/HasCode still recovers the precise
// cause while Code()/GetCode() gives the caller the DDS return-code class.
package status

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

// Code is the DDS §2.2.1 outcome taxonomy, registered as a golib CodeError
// range starting at errors.MinAvailable (the first range golib itself does
// not claim).
type Code = liberr.CodeError

const (
	// OK is not normally wrapped into an Error; it exists so the full
	// taxonomy is representable as a single Code type.
	OK Code = iota + liberr.MinAvailable
	ERROR
	UNSUPPORTED
	BAD_PARAMETER
	PRECONDITION_NOT_MET
	OUT_OF_RESOURCES
	NOT_ENABLED
	IMMUTABLE_POLICY
	INCONSISTENT_POLICY
	ALREADY_DELETED
	TIMEOUT
	NO_DATA
	ILLEGAL_OPERATION
)

func init() {
	liberr.RegisterIdFctMessage(OK, getMessage)
}

func getMessage(code Code) string {
	switch code {
	case OK:
		return "ok"
	case ERROR:
		return "error"
	case UNSUPPORTED:
		return "unsupported"
	case BAD_PARAMETER:
		return "bad parameter"
	case PRECONDITION_NOT_MET:
		return "precondition not met"
	case OUT_OF_RESOURCES:
		return "out of resources"
	case NOT_ENABLED:
		return "not enabled"
	case IMMUTABLE_POLICY:
		return "immutable policy"
	case INCONSISTENT_POLICY:
		return "inconsistent policy"
	case ALREADY_DELETED:
		return "already deleted"
	case TIMEOUT:
		return "timeout"
	case NO_DATA:
		return "no data"
	case ILLEGAL_OPERATION:
		return "illegal operation"
	}
	return ""
}

// Wrap returns code as a liberr.Error, chaining diag (a subsystem-specific
// diagnostic error, or nil) as its parent.
func Wrap(code Code, diag error) liberr.Error {
	if diag == nil {
		return code.Error()
	}
	return code.Error(diag)
}

// Wrapf is Wrap with a Sprintf-formatted top-level message in place of
// code's registered message.
func Wrapf(code Code, diag error, format string, args ...interface{}) liberr.Error {
	e := liberr.New(code.GetUint16(), fmt.Sprintf(format, args...))
	if diag != nil {
		e.Add(diag)
	}
	return e
}

// Of extracts the DDS §2.2.1 Code carried by err, or ERROR if err does not
// carry one of the registered Codes in this package's range.
func Of(err error) Code {
	e := liberr.Get(err)
	if e == nil {
		return ERROR
	}
	if c := e.GetCode(); c >= OK && c <= ILLEGAL_OPERATION {
		return c
	}
	for _, c := range e.GetParentCode() {
		if c >= OK && c <= ILLEGAL_OPERATION {
			return c
		}
	}
	return ERROR
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code Code) bool {
	return liberr.Has(err, code)
}
