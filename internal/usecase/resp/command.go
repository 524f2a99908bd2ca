package resp

import (
	"fmt"
	"strings"

	"kvserver/internal/usecase/command"
	"kvserver/internal/usecase/storage"
)

type decodeFunc func(args []string) (command.RequestData, error)

var decoders = map[string]decodeFunc{
	"HGET":     decodeHget,
	"HGETALL":  decodeHgetall,
	"HSET":     decodeHset,
	"HDEL":     decodeHdel,
	"HEXISTS":  decodeHexist,
	"HMGET":    decodeHmget,
	"HMSET":    decodeHmset,
	"HMDEL":    decodeHmdel,
	"HMEXISTS": decodeHmexist,
}

// Verb returns the upper-cased command name of a request frame, or "" if the
// frame is not a non-empty array.
func Verb(v Value) string {
	if v.Typ != "array" || len(v.Array) == 0 {
		return ""
	}
	return strings.ToUpper(v.Array[0].Bulk)
}

// DecodeRequest turns a request frame into a Request. An empty array decodes
// to a Request without data; unknown verbs and bad arity are errors.
func DecodeRequest(v Value) (*command.Request, error) {
	if v.Typ != "array" {
		return nil, command.InvalidCommand("expected array frame, got %s", v.Typ)
	}
	if len(v.Array) == 0 {
		return &command.Request{}, nil
	}

	args := make([]string, 0, len(v.Array)-1)
	for _, arg := range v.Array[1:] {
		if arg.Typ != "bulk" && arg.Typ != "string" {
			return nil, command.InvalidCommand("expected bulk string argument, got %s", arg.Typ)
		}
		args = append(args, arg.Bulk+arg.Str)
	}

	verb := Verb(v)
	decode, ok := decoders[verb]
	if !ok {
		return nil, command.InvalidCommand("unknown command '%s'", v.Array[0].Bulk)
	}

	data, err := decode(args)
	if err != nil {
		return nil, err
	}
	return &command.Request{Data: data}, nil
}

// EncodeRequest is the inverse of DecodeRequest.
func EncodeRequest(req *command.Request) (Value, error) {
	if req == nil || req.Data == nil {
		return Array(), nil
	}

	switch data := req.Data.(type) {
	case command.Hget:
		return Array(Bulk("HGET"), Bulk(data.Table), Bulk(data.Key)), nil
	case command.Hgetall:
		return Array(Bulk("HGETALL"), Bulk(data.Table)), nil
	case command.Hset:
		return Array(Bulk("HSET"), Bulk(data.Table), Bulk(data.Pair.Key), Bulk(data.Pair.Value.String())), nil
	case command.Hdel:
		return Array(Bulk("HDEL"), Bulk(data.Table), Bulk(data.Key)), nil
	case command.Hexist:
		return Array(Bulk("HEXISTS"), Bulk(data.Table), Bulk(data.Key)), nil
	case command.Hmget:
		return keysFrame("HMGET", data.Table, data.Keys), nil
	case command.Hmset:
		elems := []Value{Bulk("HMSET"), Bulk(data.Table)}
		for _, p := range data.Pairs {
			elems = append(elems, Bulk(p.Key), Bulk(p.Value.String()))
		}
		return Array(elems...), nil
	case command.Hmdel:
		return keysFrame("HMDEL", data.Table, data.Keys), nil
	case command.Hmexist:
		return keysFrame("HMEXISTS", data.Table, data.Keys), nil
	default:
		return Value{}, fmt.Errorf("no RESP encoding for %s", req.Data.Name())
	}
}

// EncodeResponse renders a Response as a reply frame.
func EncodeResponse(res *command.Response) Value {
	if res == nil {
		return Error(command.KindInternal.String() + " no response")
	}
	if !res.OK() {
		return Error(res.Kind.String() + " " + res.Message)
	}

	switch {
	case res.Pairs != nil:
		elems := make([]Value, 0, len(res.Pairs)*2)
		for _, p := range res.Pairs {
			elems = append(elems, Bulk(p.Key), valueFrame(p.Value))
		}
		return Array(elems...)
	case res.Flags != nil:
		if len(res.Flags) == 1 {
			return flagFrame(res.Flags[0])
		}
		elems := make([]Value, 0, len(res.Flags))
		for _, f := range res.Flags {
			elems = append(elems, flagFrame(f))
		}
		return Array(elems...)
	case len(res.Values) == 1:
		return valueFrame(res.Values[0])
	case res.Values != nil:
		elems := make([]Value, 0, len(res.Values))
		for _, v := range res.Values {
			elems = append(elems, valueFrame(v))
		}
		return Array(elems...)
	default:
		return Value{Typ: "string", Str: "OK"}
	}
}

func valueFrame(v storage.Value) Value {
	if v.IsNull() {
		return Null()
	}
	return Bulk(v.String())
}

func flagFrame(f bool) Value {
	if f {
		return Integer(1)
	}
	return Integer(0)
}

func keysFrame(verb, table string, keys []string) Value {
	elems := []Value{Bulk(verb), Bulk(table)}
	for _, k := range keys {
		elems = append(elems, Bulk(k))
	}
	return Array(elems...)
}

func arity(verb string, args []string, want int) error {
	if len(args) != want {
		return command.InvalidCommand("wrong number of arguments for '%s' command", verb)
	}
	return nil
}

func decodeHget(args []string) (command.RequestData, error) {
	if err := arity("HGET", args, 2); err != nil {
		return nil, err
	}
	return command.Hget{Table: args[0], Key: args[1]}, nil
}

func decodeHgetall(args []string) (command.RequestData, error) {
	if err := arity("HGETALL", args, 1); err != nil {
		return nil, err
	}
	return command.Hgetall{Table: args[0]}, nil
}

func decodeHset(args []string) (command.RequestData, error) {
	if err := arity("HSET", args, 3); err != nil {
		return nil, err
	}
	return command.Hset{
		Table: args[0],
		Pair:  storage.KvPair{Key: args[1], Value: storage.NewValue(args[2])},
	}, nil
}

func decodeHdel(args []string) (command.RequestData, error) {
	if err := arity("HDEL", args, 2); err != nil {
		return nil, err
	}
	return command.Hdel{Table: args[0], Key: args[1]}, nil
}

func decodeHexist(args []string) (command.RequestData, error) {
	if err := arity("HEXISTS", args, 2); err != nil {
		return nil, err
	}
	return command.Hexist{Table: args[0], Key: args[1]}, nil
}

func tableAndKeys(verb string, args []string) (string, []string, error) {
	if len(args) < 2 {
		return "", nil, command.InvalidCommand("wrong number of arguments for '%s' command", verb)
	}
	return args[0], args[1:], nil
}

func decodeHmget(args []string) (command.RequestData, error) {
	table, keys, err := tableAndKeys("HMGET", args)
	if err != nil {
		return nil, err
	}
	return command.Hmget{Table: table, Keys: keys}, nil
}

func decodeHmdel(args []string) (command.RequestData, error) {
	table, keys, err := tableAndKeys("HMDEL", args)
	if err != nil {
		return nil, err
	}
	return command.Hmdel{Table: table, Keys: keys}, nil
}

func decodeHmexist(args []string) (command.RequestData, error) {
	table, keys, err := tableAndKeys("HMEXISTS", args)
	if err != nil {
		return nil, err
	}
	return command.Hmexist{Table: table, Keys: keys}, nil
}

func decodeHmset(args []string) (command.RequestData, error) {
	if len(args) < 3 || len(args)%2 != 1 {
		return nil, command.InvalidCommand("wrong number of arguments for 'HMSET' command")
	}

	pairs := make([]storage.KvPair, 0, len(args)/2)
	for i := 1; i < len(args); i += 2 {
		pairs = append(pairs, storage.KvPair{Key: args[i], Value: storage.NewValue(args[i+1])})
	}
	return command.Hmset{Table: args[0], Pairs: pairs}, nil
}
