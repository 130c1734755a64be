package fault

import (
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Body is the structured error payload every HTTP surface returns.
// No stack traces, no internal detail beyond Details.
type Body struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Type    string `json:"type"`
}

// HTTPStatus maps a fault kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	case Expired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTP renders err as the structured JSON body with the mapped status.
func WriteHTTP(w http.ResponseWriter, err error) {
	body := Body{Message: "internal error", Type: Internal.String()}

	var f *Fault
	if errors.As(err, &f) {
		body = Body{Message: f.Message, Details: f.Details, Type: f.Kind.String()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(body)
}

// GRPCStatus maps a fault to its gRPC status. Queue expiry is surfaced on the
// stream as a terminal frame, not as an error, so Expired only appears here
// for unary surfaces.
func GRPCStatus(err error) error {
	var code codes.Code
	switch KindOf(err) {
	case Validation:
		code = codes.InvalidArgument
	case NotFound:
		code = codes.NotFound
	case Conflict:
		code = codes.Aborted
	case Unavailable:
		code = codes.Unavailable
	case Expired:
		code = codes.FailedPrecondition
	default:
		code = codes.Internal
	}

	var f *Fault
	if errors.As(err, &f) {
		return status.Error(code, f.Message)
	}
	return status.Error(code, "internal error")
}

// FromGRPC lifts a gRPC status error back into a fault, for surfaces that
// proxy RPC results to HTTP callers.
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Wrap(Internal, err, "rpc failed")
	}

	var kind Kind
	switch st.Code() {
	case codes.InvalidArgument:
		kind = Validation
	case codes.NotFound:
		kind = NotFound
	case codes.Aborted, codes.AlreadyExists:
		kind = Conflict
	case codes.Unavailable, codes.DeadlineExceeded:
		kind = Unavailable
	case codes.FailedPrecondition:
		kind = Expired
	default:
		kind = Internal
	}
	return New(kind, "%s", st.Message())
}
