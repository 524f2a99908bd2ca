package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvserver/internal/usecase/storage"
)

type unknownVariant struct{}

func (unknownVariant) Name() string { return "unknown" }

func TestDispatchWithoutData(t *testing.T) {
	d := DefaultDispatcher()
	store := storage.NewMemoryStorage()

	for _, req := range []*Request{nil, {}} {
		res := d.Dispatch(req, store)
		require.NotNil(t, res)
		assert.Equal(t, KindInvalidCommand, res.Kind)
		assert.Equal(t, "request has no data", res.Message)
	}
}

func TestDispatchUnregisteredVariant(t *testing.T) {
	store := storage.NewMemoryStorage()

	res := DefaultDispatcher().Dispatch(&Request{Data: unknownVariant{}}, store)
	assert.Equal(t, KindInternal, res.Kind)
	assert.Contains(t, res.Message, "not implemented")

	res = NewDispatcher().Dispatch(NewHget("t", "a"), store)
	assert.Equal(t, KindInternal, res.Kind)
	assert.Equal(t, "not implemented: hget", res.Message)
}

func TestDispatchMismatchedPayloadType(t *testing.T) {
	res := DefaultDispatcher().Dispatch(&Request{Data: &Hget{Table: "t", Key: "a"}}, storage.NewMemoryStorage())

	assert.Equal(t, KindInvalidCommand, res.Kind)
	assert.Contains(t, res.Message, "*command.Hget")
}

func TestDispatchTypedNilPayload(t *testing.T) {
	res := DefaultDispatcher().Dispatch(&Request{Data: (*Hget)(nil)}, storage.NewMemoryStorage())

	require.NotNil(t, res)
	assert.Equal(t, KindInvalidCommand, res.Kind)
	assert.Equal(t, "request has no data", res.Message)
}

type panickingName struct{}

func (panickingName) Name() string { panic("no name") }

func TestDispatchRecoversFromNamePanic(t *testing.T) {
	res := DefaultDispatcher().Dispatch(&Request{Data: panickingName{}}, storage.NewMemoryStorage())

	require.NotNil(t, res)
	assert.Equal(t, KindInternal, res.Kind)
	assert.Contains(t, res.Message, "no name")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d := NewDispatcher()
	Register[Hget](d, func(req Hget, store storage.Storage) *Response {
		panic("boom")
	})

	res := d.Dispatch(NewHget("t", "a"), storage.NewMemoryStorage())
	assert.Equal(t, KindInternal, res.Kind)
	assert.Contains(t, res.Message, "boom")
}

func TestDispatchNilResponse(t *testing.T) {
	d := NewDispatcher()
	Register[Hget](d, func(req Hget, store storage.Storage) *Response {
		return nil
	})

	res := d.Dispatch(NewHget("t", "a"), storage.NewMemoryStorage())
	assert.Equal(t, KindInternal, res.Kind)
}

func TestRegisterReplacesHandler(t *testing.T) {
	d := DefaultDispatcher()
	Register[Hget](d, func(req Hget, store storage.Storage) *Response {
		return ValuesResponse(storage.NewValue("custom:" + req.Key))
	})

	res := d.Dispatch(NewHget("t", "a"), storage.NewMemoryStorage())
	require.True(t, res.OK())
	assert.Equal(t, "custom:a", res.Value().String())
}

func TestErrorResponseNilError(t *testing.T) {
	res := ErrorResponse(nil)

	assert.Equal(t, KindInternal, res.Kind)
	assert.Equal(t, "nil error", res.Message)
}

func TestErrorResponseWrapsPlainErrors(t *testing.T) {
	res := ErrorResponse(assert.AnError)
	assert.Equal(t, KindInternal, res.Kind)
	assert.Equal(t, assert.AnError.Error(), res.Message)

	res = ErrorResponse(NotFound("key %s", "a"))
	assert.Equal(t, KindNotFound, res.Kind)
	assert.EqualError(t, res.Err(), "NOTFOUND: key a")
}
