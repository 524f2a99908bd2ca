package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvserver/internal/usecase/storage"
)

type failingStorage struct {
	storage.Storage
}

func (failingStorage) Get(string, string) (storage.Value, bool, error) {
	return storage.Value{}, false, assert.AnError
}

func (failingStorage) GetAll(string) ([]storage.KvPair, error) {
	return nil, assert.AnError
}

func TestHsetThenHget(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()

	res := d.Dispatch(NewHset("t", "a", storage.NewValue("1")), store)
	require.True(t, res.OK())
	assert.True(t, res.Value().IsNull())

	res = d.Dispatch(NewHget("t", "a"), store)
	require.True(t, res.OK())
	assert.Equal(t, "1", res.Value().String())
}

func TestHsetOverwriteReturnsPrevious(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()

	d.Dispatch(NewHset("t", "a", storage.NewValue("v1")), store)
	res := d.Dispatch(NewHset("t", "a", storage.NewValue("v2")), store)

	require.True(t, res.OK())
	assert.Equal(t, "v1", res.Value().String())
}

func TestHgetMissingIsNotFound(t *testing.T) {
	res := DefaultDispatcher().Dispatch(NewHget("t", "missing"), storage.NewMemoryStorage())

	assert.Equal(t, KindNotFound, res.Kind)
	assert.Contains(t, res.Message, "missing")
}

func TestHgetallEmptyTable(t *testing.T) {
	res := DefaultDispatcher().Dispatch(NewHgetall("empty"), storage.NewMemoryStorage())

	require.True(t, res.OK())
	assert.NotNil(t, res.Pairs)
	assert.Empty(t, res.Pairs)
}

func TestHgetallReturnsPairs(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()
	d.Dispatch(NewHmset("t",
		storage.KvPair{Key: "b", Value: storage.NewValue("2")},
		storage.KvPair{Key: "a", Value: storage.NewValue("1")},
	), store)

	res := d.Dispatch(NewHgetall("t"), store)
	require.True(t, res.OK())
	assert.Equal(t, []storage.KvPair{
		{Key: "a", Value: storage.NewValue("1")},
		{Key: "b", Value: storage.NewValue("2")},
	}, res.Pairs)
}

func TestHdelAndHexist(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()
	d.Dispatch(NewHset("t", "a", storage.NewValue("1")), store)

	res := d.Dispatch(NewHexist("t", "a"), store)
	assert.Equal(t, []bool{true}, res.Flags)

	res = d.Dispatch(NewHdel("t", "a"), store)
	require.True(t, res.OK())
	assert.Equal(t, "1", res.Value().String())

	res = d.Dispatch(NewHdel("t", "a"), store)
	require.True(t, res.OK())
	assert.True(t, res.Value().IsNull())

	res = d.Dispatch(NewHexist("t", "a"), store)
	assert.Equal(t, []bool{false}, res.Flags)
}

func TestMultiKeyCommands(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()

	res := d.Dispatch(NewHmset("t",
		storage.KvPair{Key: "a", Value: storage.NewValue("1")},
		storage.KvPair{Key: "b", Value: storage.NewValue("2")},
	), store)
	require.True(t, res.OK())
	require.Len(t, res.Values, 2)
	assert.True(t, res.Values[0].IsNull())

	res = d.Dispatch(NewHmget("t", "a", "x", "b"), store)
	require.True(t, res.OK())
	require.Len(t, res.Values, 3)
	assert.Equal(t, "1", res.Values[0].String())
	assert.True(t, res.Values[1].IsNull())
	assert.Equal(t, "2", res.Values[2].String())

	res = d.Dispatch(NewHmexist("t", "a", "x"), store)
	assert.Equal(t, []bool{true, false}, res.Flags)

	res = d.Dispatch(NewHmdel("t", "a", "b"), store)
	require.Len(t, res.Values, 2)
	assert.Equal(t, "1", res.Values[0].String())

	res = d.Dispatch(NewHgetall("t"), store)
	assert.Empty(t, res.Pairs)
}

func TestStorageFaultIsInternal(t *testing.T) {
	d := DefaultDispatcher()
	store := failingStorage{}

	res := d.Dispatch(NewHget("t", "a"), store)
	assert.Equal(t, KindInternal, res.Kind)
	assert.Contains(t, res.Message, "hget failed")

	res = d.Dispatch(NewHgetall("t"), store)
	assert.Equal(t, KindInternal, res.Kind)
}
