package cerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/pkg/storage"
)

func TestCode_Mapping(t *testing.T) {
	tests := []struct {
		code    Code
		name    string
		http    int
		connect connect.Code
	}{
		{NotFound, "not_found", http.StatusNotFound, connect.CodeNotFound},
		{InvalidArgument, "invalid_argument", http.StatusBadRequest, connect.CodeInvalidArgument},
		{Unavailable, "unavailable", http.StatusServiceUnavailable, connect.CodeUnavailable},
		{Aborted, "aborted", http.StatusConflict, connect.CodeAborted},
		{Canceled, "canceled", 499, connect.CodeCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.code.String())
			assert.Equal(t, tt.http, tt.code.HTTPCode())
			assert.Equal(t, tt.connect, tt.code.ConnectCode())
			assert.Equal(t, tt.code, NewCodeFromConnectError(connect.NewError(tt.connect, errors.New("x"))))
		})
	}
	assert.Equal(t, connect.CodeUnknown, Code(99).ConnectCode())
}

func TestError_WrapsSentinel(t *testing.T) {
	sentinel := errors.New("invalid transition")
	err := fmt.Errorf("move: %w", NewError(InvalidArgument, "cannot move task", sentinel))

	assert.True(t, IsCode(err, InvalidArgument))
	assert.False(t, IsCode(err, NotFound))
	assert.ErrorIs(t, err, sentinel)
	assert.Empty(t, NewError(NotFound, "x", nil).Stack)
	assert.NotEmpty(t, NewError(Internal, "x", nil).Stack)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("title", "title is required")
	ce := err.ConnectError()
	assert.Equal(t, connect.CodeInvalidArgument, ce.Code())
	assert.Equal(t, "title is required", ce.Message())
	require.Len(t, ce.Details(), 1)

	v, err2 := ce.Details()[0].Value()
	require.NoError(t, err2)
	violation, ok := v.(*validate.Violation)
	require.True(t, ok)
	assert.Equal(t, "title", violation.GetField().GetElements()[0].GetFieldName())
}

func TestExtractConnectError(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ExtractConnectError(ctx, nil))
	assert.Equal(t, connect.CodeUnknown, connect.CodeOf(ExtractConnectError(ctx, errors.New("raw"))))
	assert.Equal(t, connect.CodeCanceled, connect.CodeOf(ExtractConnectError(ctx, context.Canceled)))
	assert.Equal(t, connect.CodeNotFound,
		connect.CodeOf(ExtractConnectError(ctx, NewError(NotFound, "task not found", nil))))
}

func TestWrapStorageErrors(t *testing.T) {
	assert.True(t, IsCode(WrapStorageReadError("task", storage.ErrNotFound), NotFound))
	assert.True(t, IsCode(WrapStorageReadError("task", errors.New("disk")), Internal))
	assert.True(t, IsCode(WrapStorageWriteError("task", storage.ErrVersionMismatch), Aborted))
	assert.True(t, IsCode(WrapStorageDeleteError("task", storage.ErrNotFound), NotFound))

	bad := storage.CheckName("../jobs/x_execution")
	for _, err := range []error{WrapStorageReadError("task", bad), WrapStorageWriteError("task", bad), WrapStorageDeleteError("task", bad)} {
		assert.True(t, IsCode(err, InvalidArgument))
		assert.ErrorIs(t, err, storage.ErrInvalidName)
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(context.Background(), rec, NewError(NotFound, "task not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var body httpError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httpError{Code: "not_found", Message: "task not found"}, body)
}
