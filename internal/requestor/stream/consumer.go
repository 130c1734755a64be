package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/infra/server/grpc/interceptors"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"github.com/procurex/order-relay/internal/scheduler"
	"google.golang.org/grpc/metadata"
)

// Consumer owns the buyer side of order streams. Each active order gets one
// consume task on the priority scheduler; stream events become buyer
// notifications on the bus.
type Consumer struct {
	logger   *slog.Logger
	client   orderspb.OrderEventsClient
	notifier pubsub.Notifier
	tracker  *tracker.Tracker
	tasks    *scheduler.Scheduler

	maxRetries     int
	reconnectDelay time.Duration
	requestTimeout time.Duration
}

func NewConsumer(logger *slog.Logger, client orderspb.OrderEventsClient, notifier pubsub.Notifier, tr *tracker.Tracker, tasks *scheduler.Scheduler, cfg *config.Config) *Consumer {
	return &Consumer{
		logger:         logger,
		client:         client,
		notifier:       notifier,
		tracker:        tr,
		tasks:          tasks,
		maxRetries:     cfg.Stream.MaxRetries,
		reconnectDelay: cfg.Stream.ReconnectDelay,
		requestTimeout: cfg.GRPC.RequestTimeout,
	}
}

// Start schedules the consume loop for an order whose stream claim the
// caller already holds. Streams run at high priority: an order without its
// consumer is an order whose buyer sees nothing.
func (c *Consumer) Start(track *tracker.Track, notificationType string) (scheduler.TaskID, error) {
	id, err := c.tasks.Submit(scheduler.Task{
		OrderID:  track.OrderID,
		Priority: scheduler.PriorityHigh,
		Run: func(ctx context.Context) error {
			return c.consume(ctx, track, notificationType)
		},
	})
	if err != nil {
		track.ReleaseStream()
		return "", err
	}
	return id, nil
}

func (c *Consumer) consume(ctx context.Context, track *tracker.Track, notificationType string) error {
	defer track.ReleaseStream()

	l := c.logger.With(slog.String("order_id", track.OrderID))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			l.Warn("stream retrying",
				slog.Int("attempt", attempt),
				slog.Any("err", lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.reconnectDelay):
			}
		}

		err := c.run(ctx, track, notificationType)
		if err == nil {
			// Clean end of stream: the order is done, never redialed.
			l.Info("stream finished")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	l.Error("stream abandoned after retries", slog.Any("err", lastErr))
	return lastErr
}

// run holds one stream attempt open until EOF, the terminal frame, or a
// transport error. A zero request timeout means the stream has no deadline.
func (c *Consumer) run(ctx context.Context, track *tracker.Track, notificationType string) error {
	streamCtx := metadata.AppendToOutgoingContext(ctx, interceptors.SessionMetadataKey, track.Session)
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(streamCtx, c.requestTimeout)
		defer cancel()
	}

	stream, err := c.client.ProcessOrderStream(streamCtx, &orderspb.OrderStreamRequest{
		OrderReqID:       track.OrderID,
		NotificationType: notificationType,
	})
	if err != nil {
		return err
	}

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		c.dispatch(track, ev)

		if ev.StreamingResponseStatus == orderspb.StatusOrderPaused {
			// Terminal frame: the processor closed the order.
			return nil
		}
	}
}

// dispatch maps one stream event to its buyer notification.
func (c *Consumer) dispatch(track *tracker.Track, ev *orderspb.OrderStreamEvent) {
	var body string
	switch ev.StreamingResponseStatus {
	case orderspb.StatusNewProposal:
		body = "New Proposal received"
	case orderspb.StatusProposalClosed:
		body = "Proposal closed " + ev.ProposalID
	case orderspb.StatusProposalUpdate:
		body = "Proposal updates " + ev.ProposalID
	case orderspb.StatusOrderPaused:
		body = "Choose one proposal " + ev.ProposalID
	case orderspb.StatusEditLock:
		body = "Proposal updates in progress " + ev.ProposalID
	default:
		c.logger.Warn("unmapped stream status skipped",
			slog.String("order_id", ev.OrderReqID),
			slog.String("status", string(ev.StreamingResponseStatus)),
		)
		return
	}

	c.notifier.Publish(context.Background(), pubsub.TopicBuyerNotify, pubsub.KeyOrdUpdates, pubsub.Notification{
		OrderID: track.OrderID,
		Session: track.Session,
		Body:    body,
	})
}
