package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/infra/server/grpc/interceptors"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"github.com/procurex/order-relay/internal/scheduler"
)

// scriptedStream replays a fixed sequence of frames, then a final error.
type scriptedStream struct {
	grpc.ClientStream
	frames []*orderspb.OrderStreamEvent
	final  error
	pos    int
}

func (s *scriptedStream) Recv() (*orderspb.OrderStreamEvent, error) {
	if s.pos >= len(s.frames) {
		if s.final != nil {
			return nil, s.final
		}
		return nil, io.EOF
	}
	ev := s.frames[s.pos]
	s.pos++
	return ev, nil
}

type fakeEventsClient struct {
	mu       sync.Mutex
	attempts []context.Context
	streams  []*scriptedStream
	dialErr  error
}

func (f *fakeEventsClient) ProcessOrderStream(ctx context.Context, _ *orderspb.OrderStreamRequest, _ ...grpc.CallOption) (orderspb.OrderEvents_ProcessOrderStreamClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, ctx)
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	n := len(f.attempts) - 1
	if n >= len(f.streams) {
		n = len(f.streams) - 1
	}
	return f.streams[n], nil
}

func (f *fakeEventsClient) ProcessFollowUp(context.Context, *orderspb.ProcessFollowUpRequest, ...grpc.CallOption) (*orderspb.ProcessFollowUpResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeEventsClient) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []pubsub.Notification
}

func (r *recordingNotifier) Publish(_ context.Context, _ pubsub.Topic, _ pubsub.Key, n pubsub.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Body
	}
	return out
}

func consumerFixture(t *testing.T, client orderspb.OrderEventsClient, notifier pubsub.Notifier) (*Consumer, *tracker.Tracker) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	tasks := scheduler.NewScheduler(2, logger)
	t.Cleanup(tasks.Shutdown)

	cfg := &config.Config{}
	cfg.Stream.MaxRetries = 2
	cfg.Stream.ReconnectDelay = 10 * time.Millisecond

	tr := tracker.NewTracker(logger)
	return NewConsumer(logger, client, notifier, tr, tasks, cfg), tr
}

func waitReleased(t *testing.T, track *tracker.Track) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !track.StreamActive()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConsumerDispatchesBuyerMessages(t *testing.T) {
	client := &fakeEventsClient{streams: []*scriptedStream{{
		frames: []*orderspb.OrderStreamEvent{
			{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusNewProposal, ProposalID: "P1"},
			{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusProposalUpdate, ProposalID: "P1"},
			{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusEditLock, ProposalID: "P1"},
			{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusProposalClosed, ProposalID: "P1"},
			{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusOrderPaused},
		},
	}}}
	notifier := &recordingNotifier{}
	consumer, tr := consumerFixture(t, client, notifier)

	track := tr.Touch("O1", "sess")
	require.True(t, track.ClaimStream())

	_, err := consumer.Start(track, "None")
	require.NoError(t, err)
	waitReleased(t, track)

	assert.Equal(t, []string{
		"New Proposal received",
		"Proposal updates P1",
		"Proposal updates in progress P1",
		"Proposal closed P1",
		"Choose one proposal ",
	}, notifier.bodies())

	// The terminal frame ends the stream without a redial.
	assert.Equal(t, 1, client.attemptCount())
}

func TestConsumerCleanEOFDoesNotRetry(t *testing.T) {
	client := &fakeEventsClient{streams: []*scriptedStream{{}}}
	consumer, tr := consumerFixture(t, client, &recordingNotifier{})

	track := tr.Touch("O1", "sess")
	require.True(t, track.ClaimStream())

	_, err := consumer.Start(track, "None")
	require.NoError(t, err)
	waitReleased(t, track)

	assert.Equal(t, 1, client.attemptCount())
}

func TestConsumerRetriesThenGivesUp(t *testing.T) {
	client := &fakeEventsClient{dialErr: errors.New("connection refused")}
	consumer, tr := consumerFixture(t, client, &recordingNotifier{})

	track := tr.Touch("O1", "sess")
	require.True(t, track.ClaimStream())

	id, err := consumer.Start(track, "None")
	require.NoError(t, err)
	waitReleased(t, track)

	// Initial attempt plus MaxRetries redials.
	require.Eventually(t, func() bool {
		return client.attemptCount() == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		out, ok := consumer.tasks.Result(id)
		return ok && out.Err != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConsumerRecoversMidStream(t *testing.T) {
	client := &fakeEventsClient{streams: []*scriptedStream{
		{
			frames: []*orderspb.OrderStreamEvent{
				{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusNewProposal, ProposalID: "P1"},
			},
			final: errors.New("transport reset"),
		},
		{
			frames: []*orderspb.OrderStreamEvent{
				{OrderReqID: "O1", StreamingResponseStatus: orderspb.StatusOrderPaused},
			},
		},
	}}
	notifier := &recordingNotifier{}
	consumer, tr := consumerFixture(t, client, notifier)

	track := tr.Touch("O1", "sess")
	require.True(t, track.ClaimStream())

	_, err := consumer.Start(track, "None")
	require.NoError(t, err)
	waitReleased(t, track)

	assert.Equal(t, 2, client.attemptCount())
	assert.Equal(t, []string{
		"New Proposal received",
		"Choose one proposal ",
	}, notifier.bodies())
}

func TestConsumerCarriesSessionMetadata(t *testing.T) {
	client := &fakeEventsClient{streams: []*scriptedStream{{}}}
	consumer, tr := consumerFixture(t, client, &recordingNotifier{})

	track := tr.Touch("O1", "sess-42")
	require.True(t, track.ClaimStream())

	_, err := consumer.Start(track, "None")
	require.NoError(t, err)
	waitReleased(t, track)

	require.Equal(t, 1, client.attemptCount())
	md, ok := metadata.FromOutgoingContext(client.attempts[0])
	require.True(t, ok)
	assert.Equal(t, []string{"sess-42"}, md.Get(interceptors.SessionMetadataKey))
}

func TestStartFailureReleasesClaim(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	tasks := scheduler.NewScheduler(1, logger)
	tasks.Shutdown()

	cfg := &config.Config{}
	tr := tracker.NewTracker(logger)
	consumer := NewConsumer(logger, &fakeEventsClient{}, &recordingNotifier{}, tr, tasks, cfg)

	track := tr.Touch("O1", "sess")
	require.True(t, track.ClaimStream())

	_, err := consumer.Start(track, "None")
	assert.ErrorIs(t, err, scheduler.ErrShutdown)
	assert.False(t, track.StreamActive())
}
