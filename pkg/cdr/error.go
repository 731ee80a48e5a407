package cdr

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeBufferTooShort liberr.CodeError = iota + liberr.MinAvailable + 600
	codeTypeRedefined
	codeUnknownTypeRef
	codeValueMismatch
)

func init() {
	liberr.RegisterIdFctMessage(codeBufferTooShort, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeBufferTooShort:
		return "cdr: buffer too short"
	case codeTypeRedefined:
		return "cdr: type registered twice with a different definition"
	case codeUnknownTypeRef:
		return "cdr: typeref names no registered type"
	case codeValueMismatch:
		return "cdr: value does not match its type descriptor"
	}
	return ""
}

// ErrBufferTooShort reports a Reader call that needed more bytes than the
// underlying buffer has remaining.
func ErrBufferTooShort() liberr.Error {
	return status.Wrap(status.ERROR, codeBufferTooShort.Error())
}

// ErrTypeRedefined reports a Register call whose name is already bound to a
// structurally different descriptor.
func ErrTypeRedefined(name string) liberr.Error {
	return status.Wrapf(status.INCONSISTENT_POLICY, codeTypeRedefined.Error(), "cdr: type %q redefined", name)
}

// ErrUnknownTypeRef reports a TCTypeRef naming no registered type.
func ErrUnknownTypeRef(name string) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeUnknownTypeRef.Error(), "cdr: unresolved typeref %q", name)
}

// ErrValueMismatch reports a dynamic value whose Go shape does not satisfy
// the type descriptor it is being serialized against.
func ErrValueMismatch(detail string) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeValueMismatch.Error(), "cdr: %s", detail)
}
