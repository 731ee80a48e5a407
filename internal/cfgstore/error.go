package cfgstore

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeNotARange liberr.CodeError = iota + liberr.MinAvailable + 500
)

func init() {
	liberr.RegisterIdFctMessage(codeNotARange, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeNotARange:
		return "cfgstore: value is not a range"
	}
	return ""
}

func errNotARange(name string) liberr.Error {
	return status.Wrapf(status.BAD_PARAMETER, codeNotARange.Error(), "cfgstore: %q is not a range (want \"min-max\")", name)
}
