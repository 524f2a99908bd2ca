package command

import (
	"reflect"
	"sync"

	"kvserver/internal/usecase/storage"
)

// Handler executes one request variant against a store.
type Handler[V RequestData] func(req V, store storage.Storage) *Response

type handlerFunc func(data RequestData, store storage.Storage) *Response

// Dispatcher routes a Request to the handler registered for its variant.
// Dispatch is total: it never panics and always returns a Response.
type Dispatcher struct {
	handlers map[string]handlerFunc
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]handlerFunc),
	}
}

// DefaultDispatcher has a handler for every variant in this package.
func DefaultDispatcher() *Dispatcher {
	d := NewDispatcher()
	Register[Hget](d, hget)
	Register[Hgetall](d, hgetall)
	Register[Hset](d, hset)
	Register[Hdel](d, hdel)
	Register[Hexist](d, hexist)
	Register[Hmget](d, hmget)
	Register[Hmset](d, hmset)
	Register[Hmdel](d, hmdel)
	Register[Hmexist](d, hmexist)
	return d
}

// Register binds handler to variant V, replacing any earlier handler.
func Register[V RequestData](d *Dispatcher, handler Handler[V]) {
	var zero V
	name := zero.Name()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[name] = func(data RequestData, store storage.Storage) *Response {
		req, ok := data.(V)
		if !ok {
			return ErrorResponse(InvalidCommand("payload %T does not match variant %s", data, name))
		}
		return handler(req, store)
	}
}

func (d *Dispatcher) Dispatch(req *Request, store storage.Storage) (res *Response) {
	if req == nil || isNil(req.Data) {
		return ErrorResponse(InvalidCommand("request has no data"))
	}

	name := "unknown"
	defer func() {
		if r := recover(); r != nil {
			res = ErrorResponse(Internal("%s handler panicked: %v", name, r))
		}
	}()

	name = req.Data.Name()

	d.mu.RLock()
	handler, ok := d.handlers[name]
	d.mu.RUnlock()

	if !ok {
		return ErrorResponse(Internal("not implemented: %s", name))
	}

	res = handler(req.Data, store)
	if res == nil {
		return ErrorResponse(Internal("%s handler returned no response", name))
	}
	return res
}

// isNil also catches an interface holding a typed nil pointer.
func isNil(data RequestData) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
