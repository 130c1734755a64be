package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/requestor/stream"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"github.com/procurex/order-relay/internal/scheduler"
)

type emptyStream struct{ grpc.ClientStream }

func (emptyStream) Recv() (*orderspb.OrderStreamEvent, error) { return nil, io.EOF }

type fakeRPC struct {
	followUpReq  *orderspb.ProcessFollowUpRequest
	followUpResp *orderspb.ProcessFollowUpResponse
	followUpErr  error
}

func (f *fakeRPC) ProcessOrderStream(context.Context, *orderspb.OrderStreamRequest, ...grpc.CallOption) (orderspb.OrderEvents_ProcessOrderStreamClient, error) {
	return emptyStream{}, nil
}

func (f *fakeRPC) ProcessFollowUp(_ context.Context, req *orderspb.ProcessFollowUpRequest, _ ...grpc.CallOption) (*orderspb.ProcessFollowUpResponse, error) {
	f.followUpReq = req
	if f.followUpErr != nil {
		return nil, f.followUpErr
	}
	return f.followUpResp, nil
}

type fakeStore struct {
	followUps   map[string]model.FollowUp
	canonicalID string
	saveErr     error
	statuses    map[string]string
	statusErr   error
}

func (f *fakeStore) SaveOrderFollowUp(_ context.Context, orderID string, fu model.FollowUp) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if f.followUps == nil {
		f.followUps = make(map[string]model.FollowUp)
	}
	f.followUps[orderID] = fu
	return f.canonicalID, nil
}

func (f *fakeStore) SetOrderStatus(_ context.Context, orderID, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[orderID] = status
	return nil
}

type fakeNotifier struct {
	topics []pubsub.Topic
}

func (f *fakeNotifier) Publish(_ context.Context, topic pubsub.Topic, _ pubsub.Key, _ pubsub.Notification) bool {
	f.topics = append(f.topics, topic)
	return true
}

type orderFixture struct {
	tracker  *tracker.Tracker
	store    *fakeStore
	rpc      *fakeRPC
	notifier *fakeNotifier
	router   chi.Router
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	tasks := scheduler.NewScheduler(2, logger)
	t.Cleanup(tasks.Shutdown)

	f := &orderFixture{
		tracker:  tracker.NewTracker(logger),
		store:    &fakeStore{},
		rpc:      &fakeRPC{followUpResp: &orderspb.ProcessFollowUpResponse{}},
		notifier: &fakeNotifier{},
	}

	cfg := &config.Config{}
	consumer := stream.NewConsumer(logger, f.rpc, f.notifier, f.tracker, tasks, cfg)
	h := NewOrderHandler(logger, f.tracker, consumer, f.store, f.rpc, f.notifier)

	r := chi.NewRouter()
	r.Post("/orders/initiate", h.Initiate)
	r.Post("/orders/{order_req_id}/followup", h.FollowUp)
	r.Put("/orders/finalize/{order_req_id}", h.Finalize)
	r.Put("/orders/pause/{order_req_id}", h.Pause)
	f.router = r
	return f
}

func (f *orderFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestInitiate(t *testing.T) {
	f := newOrderFixture(t)

	rec := f.do(t, http.MethodPost, "/orders/initiate", map[string]any{
		"order_req_id": "O1",
		"session":      "sess-1",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp initiateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "initiated", resp.Status)
	assert.NotEmpty(t, resp.TaskID)

	assert.Contains(t, f.notifier.topics, pubsub.TopicBuyerAcknowledgements)
}

func TestInitiateDuplicateShortCircuits(t *testing.T) {
	f := newOrderFixture(t)

	// Hold the claim so the second initiate sees an active stream.
	track := f.tracker.Touch("O1", "sess-1")
	require.True(t, track.ClaimStream())

	rec := f.do(t, http.MethodPost, "/orders/initiate", map[string]any{"order_req_id": "O1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp initiateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
	assert.Empty(t, resp.TaskID)
	assert.Empty(t, f.notifier.topics)
}

func TestInitiateValidation(t *testing.T) {
	f := newOrderFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/orders/initiate", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/orders/initiate", map[string]any{"order_req_id": "O/1"}).Code)
}

func TestOrderFollowUp(t *testing.T) {
	f := newOrderFixture(t)
	f.rpc.followUpResp = &orderspb.ProcessFollowUpResponse{
		NsFollowUpResp: []orderspb.FollowUpResult{{Audience: "P1", Status: orderspb.FollowUpUpdated}},
	}

	rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{
		"audience": []string{"P1"},
		"body":     "need it sooner",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderFollowUpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "O1", resp.OrderReqID)
	assert.True(t, model.ValidFollowUpID(resp.OrderFollowUpID, "O1"))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, orderspb.FollowUpUpdated, resp.Results[0].Status)

	// Durable write happened before the fan-out, with the same id.
	require.Contains(t, f.store.followUps, "O1")
	require.NotNil(t, f.rpc.followUpReq)
	assert.Equal(t, resp.OrderFollowUpID, f.rpc.followUpReq.OrderFollowUpID)
	assert.Equal(t, []string{"P1"}, f.rpc.followUpReq.Audience)

	// The note landed on the local track too.
	track, ok := f.tracker.Get("O1")
	require.True(t, ok)
	assert.Len(t, track.Notes(), 1)

	assert.Contains(t, f.notifier.topics, pubsub.TopicBuyerFollowUp)
}

func TestOrderFollowUpCanonicalID(t *testing.T) {
	f := newOrderFixture(t)
	f.store.canonicalID = "F-O1-0badf00d"

	rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{"body": "note"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderFollowUpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "F-O1-0badf00d", resp.OrderFollowUpID)
	assert.Equal(t, "F-O1-0badf00d", f.rpc.followUpReq.OrderFollowUpID)
}

func TestOrderFollowUpValidation(t *testing.T) {
	f := newOrderFixture(t)

	rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{"audience": []string{"P1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderFollowUpRPCFailure(t *testing.T) {
	f := newOrderFixture(t)

	t.Run("unknown order", func(t *testing.T) {
		f.rpc.followUpErr = status.Error(codes.NotFound, "order O1 not found")
		rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{"body": "note"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("processor down", func(t *testing.T) {
		f.rpc.followUpErr = status.Error(codes.Unavailable, "connection refused")
		rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{"body": "note"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestOrderFollowUpStoreFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.store.saveErr = errors.New("persistence down")

	rec := f.do(t, http.MethodPost, "/orders/O1/followup", map[string]any{"body": "note"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Nothing reached the processor.
	assert.Nil(t, f.rpc.followUpReq)
}

func TestFinalizeAndPause(t *testing.T) {
	f := newOrderFixture(t)

	rec := f.do(t, http.MethodPut, "/orders/finalize/O1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(model.ProposalLocked), f.store.statuses["O1"])

	rec = f.do(t, http.MethodPut, "/orders/pause/O2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(model.ProposalPaused), f.store.statuses["O2"])
}

func TestTransitionStoreFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.store.statusErr = errors.New("persistence down")

	rec := f.do(t, http.MethodPut, "/orders/finalize/O1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
