package command

import "kvserver/internal/usecase/storage"

func storageError(op string, err error) *Response {
	return ErrorResponse(Internal("%s failed: %v", op, err))
}

func hget(req Hget, store storage.Storage) *Response {
	value, ok, err := store.Get(req.Table, req.Key)
	if err != nil {
		return storageError("hget", err)
	}
	if !ok {
		return ErrorResponse(NotFound("table %s, key %s", req.Table, req.Key))
	}
	return ValuesResponse(value)
}

func hgetall(req Hgetall, store storage.Storage) *Response {
	pairs, err := store.GetAll(req.Table)
	if err != nil {
		return storageError("hgetall", err)
	}
	return PairsResponse(pairs)
}

func hset(req Hset, store storage.Storage) *Response {
	prev, _, err := store.Set(req.Table, req.Pair.Key, req.Pair.Value)
	if err != nil {
		return storageError("hset", err)
	}
	return ValuesResponse(prev)
}

func hdel(req Hdel, store storage.Storage) *Response {
	removed, _, err := store.Delete(req.Table, req.Key)
	if err != nil {
		return storageError("hdel", err)
	}
	return ValuesResponse(removed)
}

func hexist(req Hexist, store storage.Storage) *Response {
	ok, err := store.Contains(req.Table, req.Key)
	if err != nil {
		return storageError("hexist", err)
	}
	return FlagsResponse(ok)
}

func hmget(req Hmget, store storage.Storage) *Response {
	values := make([]storage.Value, 0, len(req.Keys))
	for _, key := range req.Keys {
		value, _, err := store.Get(req.Table, key)
		if err != nil {
			return storageError("hmget", err)
		}
		values = append(values, value)
	}
	return ValuesResponse(values...)
}

func hmset(req Hmset, store storage.Storage) *Response {
	values := make([]storage.Value, 0, len(req.Pairs))
	for _, pair := range req.Pairs {
		prev, _, err := store.Set(req.Table, pair.Key, pair.Value)
		if err != nil {
			return storageError("hmset", err)
		}
		values = append(values, prev)
	}
	return ValuesResponse(values...)
}

func hmdel(req Hmdel, store storage.Storage) *Response {
	values := make([]storage.Value, 0, len(req.Keys))
	for _, key := range req.Keys {
		removed, _, err := store.Delete(req.Table, key)
		if err != nil {
			return storageError("hmdel", err)
		}
		values = append(values, removed)
	}
	return ValuesResponse(values...)
}

func hmexist(req Hmexist, store storage.Storage) *Response {
	flags := make([]bool, 0, len(req.Keys))
	for _, key := range req.Keys {
		ok, err := store.Contains(req.Table, key)
		if err != nil {
			return storageError("hmexist", err)
		}
		flags = append(flags, ok)
	}
	return FlagsResponse(flags...)
}
