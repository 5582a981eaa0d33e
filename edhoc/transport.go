package edhoc

import (
	"context"
	"fmt"

	"github.com/sage-x-project/lake/lakeerr"
)

// Transport is the caller-supplied tx/rx collaborator: the
// state machine is blocking on it and never touches a socket directly.
// ctx cancellation must surface as Cancelled.
type Transport interface {
	Tx(ctx context.Context, data []byte) error
	Rx(ctx context.Context) ([]byte, error)
}

// wrapCancel maps a context cancellation observed around a transport call
// into the Cancelled error kind.
func wrapCancel(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return lakeerr.Wrap(lakeerr.Cancelled, "transport call cancelled", err)
	}
	return lakeerr.Wrap(lakeerr.TransportError, "transport call failed", err)
}

// wrapCancelBytes is wrapCancel's counterpart for a Transport.Rx result.
func wrapCancelBytes(ctx context.Context, b []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, wrapCancel(ctx, err)
	}
	return b, nil
}

// tryDecodeError reports whether raw parses as an EDHOC error message
// rather than a regular protocol message. ERR_CODE always leads with a
// CBOR int, which none of msg2..msg4 start with (they open on a bstr), so
// a successful decode is conclusive where one of those is expected. msg1
// opens on its METHOD int, so this check is not used where msg1 arrives.
func tryDecodeError(raw []byte) (ErrorMsg, bool) {
	em, err := DecodeErrorMsg(raw)
	if err != nil {
		return ErrorMsg{}, false
	}
	return em, true
}

func errorMsgDetail(em ErrorMsg) string {
	if em.Code == ErrCodeWrongCipherSuite {
		return fmt.Sprintf("peer sent error(2) SUITES_R=%v", em.SuitesR.List)
	}
	return fmt.Sprintf("peer sent error(%d) INFO=%x", em.Code, em.Info)
}

// errorMsgAsError turns a received EDHOC error message into the caller-
// visible *lakeerr.Error, carrying SUITES_R for code 2 so Negotiate can
// act on it without re-parsing the detail string.
func errorMsgAsError(em ErrorMsg) *lakeerr.Error {
	var e *lakeerr.Error
	if em.Code == ErrCodeWrongCipherSuite {
		e = lakeerr.ErrorMessage(em.Code, em.SuitesR.List)
	} else {
		e = lakeerr.ErrorMessage(em.Code, em.Info)
	}
	e.Detail = errorMsgDetail(em)
	return e
}
