package durability

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeOpen liberr.CodeError = iota + liberr.MinAvailable + 520
)

func init() {
	liberr.RegisterIdFctMessage(codeOpen, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeOpen:
		return "durability: open"
	}
	return ""
}

func errOpen(dir string, parent error) liberr.Error {
	return status.Wrapf(status.ERROR, codeOpen.Error(parent), "durability: open %s", dir)
}
