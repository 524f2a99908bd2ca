package command

import "kvserver/internal/usecase/storage"

// RequestData is the payload variant carried by a Request.
type RequestData interface {
	Name() string
}

// Request is a decoded command. A nil Data means the request carried no
// recognized payload.
type Request struct {
	Data RequestData
}

type Hget struct {
	Table string
	Key   string
}

type Hgetall struct {
	Table string
}

type Hset struct {
	Table string
	Pair  storage.KvPair
}

type Hdel struct {
	Table string
	Key   string
}

type Hexist struct {
	Table string
	Key   string
}

type Hmget struct {
	Table string
	Keys  []string
}

type Hmset struct {
	Table string
	Pairs []storage.KvPair
}

type Hmdel struct {
	Table string
	Keys  []string
}

type Hmexist struct {
	Table string
	Keys  []string
}

func (Hget) Name() string    { return "hget" }
func (Hgetall) Name() string { return "hgetall" }
func (Hset) Name() string    { return "hset" }
func (Hdel) Name() string    { return "hdel" }
func (Hexist) Name() string  { return "hexist" }
func (Hmget) Name() string   { return "hmget" }
func (Hmset) Name() string   { return "hmset" }
func (Hmdel) Name() string   { return "hmdel" }
func (Hmexist) Name() string { return "hmexist" }

func NewHget(table, key string) *Request {
	return &Request{Data: Hget{Table: table, Key: key}}
}

func NewHgetall(table string) *Request {
	return &Request{Data: Hgetall{Table: table}}
}

func NewHset(table, key string, value storage.Value) *Request {
	return &Request{Data: Hset{Table: table, Pair: storage.KvPair{Key: key, Value: value}}}
}

func NewHdel(table, key string) *Request {
	return &Request{Data: Hdel{Table: table, Key: key}}
}

func NewHexist(table, key string) *Request {
	return &Request{Data: Hexist{Table: table, Key: key}}
}

func NewHmget(table string, keys ...string) *Request {
	return &Request{Data: Hmget{Table: table, Keys: keys}}
}

func NewHmset(table string, pairs ...storage.KvPair) *Request {
	return &Request{Data: Hmset{Table: table, Pairs: pairs}}
}

func NewHmdel(table string, keys ...string) *Request {
	return &Request{Data: Hmdel{Table: table, Keys: keys}}
}

func NewHmexist(table string, keys ...string) *Request {
	return &Request{Data: Hmexist{Table: table, Keys: keys}}
}
