package command

import (
	"errors"
	"fmt"

	"kvserver/internal/usecase/storage"
)

type Kind int

const (
	KindOK Kind = iota
	KindInvalidCommand
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindInvalidCommand:
		return "INVALID"
	case KindNotFound:
		return "NOTFOUND"
	case KindInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

// KvError is an error that maps onto an error Response.
type KvError struct {
	Kind    Kind
	Message string
}

func (e *KvError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func InvalidCommand(format string, args ...any) *KvError {
	return &KvError{Kind: KindInvalidCommand, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *KvError {
	return &KvError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) *KvError {
	return &KvError{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// Response is the single result produced for a Request. On success only one
// of Values, Pairs or Flags carries the payload.
type Response struct {
	Kind    Kind
	Message string
	Values  []storage.Value
	Pairs   []storage.KvPair
	Flags   []bool
}

func (r *Response) OK() bool {
	return r.Kind == KindOK
}

// Value returns the first value, or the absent marker.
func (r *Response) Value() storage.Value {
	if len(r.Values) == 0 {
		return storage.Value{}
	}
	return r.Values[0]
}

// Err returns the response as a *KvError, or nil on success.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &KvError{Kind: r.Kind, Message: r.Message}
}

func ValuesResponse(values ...storage.Value) *Response {
	return &Response{Kind: KindOK, Values: values}
}

func PairsResponse(pairs []storage.KvPair) *Response {
	if pairs == nil {
		pairs = []storage.KvPair{}
	}
	return &Response{Kind: KindOK, Pairs: pairs}
}

func FlagsResponse(flags ...bool) *Response {
	return &Response{Kind: KindOK, Flags: flags}
}

// ErrorResponse converts err into a Response. Errors that are not a *KvError
// are reported as internal.
func ErrorResponse(err error) *Response {
	if err == nil {
		return &Response{Kind: KindInternal, Message: "nil error"}
	}

	var kvErr *KvError
	if !errors.As(err, &kvErr) {
		kvErr = Internal("%s", err.Error())
	}
	return &Response{Kind: kvErr.Kind, Message: kvErr.Message}
}
