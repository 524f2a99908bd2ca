package storage

import "errors"

var ErrClosed = errors.New("storage closed")

// Value is an opaque byte string. A Value with nil Data marks absence.
type Value struct {
	Data []byte
}

func NewValue(s string) Value {
	return Value{Data: []byte(s)}
}

func (v Value) IsNull() bool {
	return v.Data == nil
}

func (v Value) String() string {
	return string(v.Data)
}

// Clone returns a copy that does not share memory with v. Empty values stay
// non-null.
func (v Value) Clone() Value {
	if v.Data == nil {
		return Value{}
	}
	data := make([]byte, len(v.Data))
	copy(data, v.Data)
	return Value{Data: data}
}

type KvPair struct {
	Key   string
	Value Value
}

// Storage is implemented by every backend. The bool results report whether the
// key existed; an error is a backend fault, never a missing key.
type Storage interface {
	Get(table, key string) (Value, bool, error)
	// Set stores value unconditionally and returns the previous value.
	Set(table, key string, value Value) (Value, bool, error)
	Contains(table, key string) (bool, error)
	// Delete removes key and returns the removed value.
	Delete(table, key string) (Value, bool, error)
	// GetAll returns a snapshot of table taken at call time.
	GetAll(table string) ([]KvPair, error)
	Close() error
}
