package cfilter

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeMissingField liberr.CodeError = iota + liberr.MinAvailable + 420
	codeBadLiteral
	codeNoOperator
)

func init() {
	liberr.RegisterIdFctMessage(codeMissingField, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeMissingField:
		return "cfilter: missing field"
	case codeBadLiteral:
		return "cfilter: bad literal"
	case codeNoOperator:
		return "cfilter: no operator found"
	}
	return ""
}

func errMissingField(clause string) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeMissingField.Error(), "cfilter: missing field in %q", clause)
}

func errBadLiteral(litStr, clause string, parent error) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeBadLiteral.Error(parent), "cfilter: bad literal %q in %q", litStr, clause)
}

func errNoOperator(clause string) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeNoOperator.Error(), "cfilter: no operator found in %q", clause)
}
