package debugapi

import (
	liberr "github.com/nabbar/golib/errors"

	"github.com/tdds/tdds-core/internal/status"
)

const (
	codeListen liberr.CodeError = iota + liberr.MinAvailable + 900
)

func init() {
	liberr.RegisterIdFctMessage(codeListen, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case codeListen:
		return "debugapi: listen"
	}
	return ""
}

func errListen(addr string, parent error) liberr.Error {
	return status.Wrapf(status.ERROR, codeListen.Error(parent), "debugapi: listen %s", addr)
}
