package fault

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation:  http.StatusBadRequest,
		NotFound:    http.StatusNotFound,
		Conflict:    http.StatusConflict,
		Unavailable: http.StatusServiceUnavailable,
		Expired:     http.StatusGone,
		Internal:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "boom")), kind.String())
	}

	// Non-fault errors default to 500.
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWriteHTTP(t *testing.T) {
	t.Run("fault body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteHTTP(rec, New(NotFound, "no such order").WithDetails("O1"))

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body Body
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "no such order", body.Message)
		assert.Equal(t, "O1", body.Details)
		assert.Equal(t, NotFound.String(), body.Type)
	})

	t.Run("plain error is masked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteHTTP(rec, errors.New("secret stack detail"))

		var body Body
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "internal error", body.Message)
		assert.NotContains(t, rec.Body.String(), "secret")
	})
}

func TestGRPCStatus(t *testing.T) {
	cases := map[Kind]codes.Code{
		Validation:  codes.InvalidArgument,
		NotFound:    codes.NotFound,
		Conflict:    codes.Aborted,
		Unavailable: codes.Unavailable,
		Expired:     codes.FailedPrecondition,
		Internal:    codes.Internal,
	}
	for kind, want := range cases {
		st, ok := status.FromError(GRPCStatus(New(kind, "boom")))
		require.True(t, ok)
		assert.Equal(t, want, st.Code(), kind.String())
	}
}

func TestFromGRPC(t *testing.T) {
	assert.NoError(t, FromGRPC(nil))

	err := FromGRPC(status.Error(codes.NotFound, "unknown order"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Contains(t, err.Error(), "unknown order")

	assert.Equal(t, Unavailable, KindOf(FromGRPC(status.Error(codes.DeadlineExceeded, "late"))))
	assert.Equal(t, Expired, KindOf(FromGRPC(status.Error(codes.FailedPrecondition, "done"))))
}
