package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/infra/server/grpc/interceptors"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/domain/registry"
	"github.com/procurex/order-relay/internal/processor/service"
	"github.com/procurex/order-relay/internal/scheduler"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ orderspb.OrderEventsServer = (*OrderEventsService)(nil)

// OrderEventsService drives the per-order event dispatch engine: one
// server-streaming session per order plus the unary follow-up fan-out.
type OrderEventsService struct {
	logger    *slog.Logger
	registry  registry.Registrar
	selector  service.SellerSelector
	updater   service.ProposalUpdater
	followups service.FollowUpApplier
	notifier  pubsub.Notifier
	chat      service.ChatNotifier
	tasks     *scheduler.Scheduler

	orderTTL       time.Duration
	dequeueTimeout time.Duration

	orderspb.UnimplementedOrderEventsServer
}

func NewOrderEventsService(
	logger *slog.Logger,
	reg registry.Registrar,
	selector service.SellerSelector,
	updater service.ProposalUpdater,
	followups service.FollowUpApplier,
	notifier pubsub.Notifier,
	chat service.ChatNotifier,
	tasks *scheduler.Scheduler,
	orderTTL, dequeueTimeout time.Duration,
) *OrderEventsService {
	return &OrderEventsService{
		logger:         logger,
		registry:       reg,
		selector:       selector,
		updater:        updater,
		followups:      followups,
		notifier:       notifier,
		chat:           chat,
		tasks:          tasks,
		orderTTL:       orderTTL,
		dequeueTimeout: dequeueTimeout,
	}
}

// ProcessOrderStream holds one long-lived session for an order: it binds
// state, selects and notifies sellers, then pumps queued signals to the wire
// until the order's deadline.
//
// Causal contract: all signals for one order share one mailbox, so events for
// any single proposal reach the wire in enqueue order. No ordering is
// promised across proposals.
func (s *OrderEventsService) ProcessOrderStream(req *orderspb.OrderStreamRequest, stream orderspb.OrderEvents_ProcessOrderStreamServer) error {
	if req.OrderReqID == "" {
		return fault.GRPCStatus(fault.New(fault.Validation, "order_req_id is required"))
	}

	ctx := stream.Context()
	session := interceptors.GetSession(ctx)

	l := s.logger.With(
		slog.String("order_id", req.OrderReqID),
		slog.String("stream_id", uuid.NewString()),
	)
	l.Info("order stream opening", slog.String("notification_type", req.NotificationType))

	// Bind state. Idempotent: a reconnect inside the order's lifetime finds
	// the same cell, with everything enqueued while disconnected intact.
	cell := s.registry.GetOrCreate(req.OrderReqID, s.orderTTL, session)

	// Seller selection is the one fatal step: without sellers there is
	// nobody to notify and the stream has no reason to exist.
	sellers, err := s.selector.Select(ctx, cell)
	if err != nil {
		l.Error("seller selection failed", slog.Any("err", err))
		return status.Error(codes.Internal, "seller selection failed")
	}

	s.notifySellers(ctx, cell, sellers, model.NotificationType(req.NotificationType), l)

	// Emit loop. A dequeue timeout is not an event, just a cue to re-check
	// the deadline.
	for !cell.Expired(time.Now()) {
		sig, ok := cell.Dequeue(ctx, s.dequeueTimeout)
		if ctx.Err() != nil {
			// Client gone. Emission ends; the order, its state, and its
			// mailbox all survive until the sweeper enforces the deadline.
			// A signal popped in the same instant the client vanished goes
			// back to the head of the queue for the next attach.
			if ok {
				cell.Requeue(sig)
			}
			l.Info("client closed stream", slog.Any("reason", ctx.Err()))
			return nil
		}
		if !ok {
			continue
		}

		ev := s.eventFor(cell, sig, l)
		if ev == nil {
			continue
		}
		if err := stream.Send(ev); err != nil {
			l.Error("stream transmission failed",
				slog.String("signal", sig.Wire()),
				slog.Any("err", err),
			)
			return status.Error(codes.DataLoss, "stream transmission failed")
		}
	}

	// Deadline reached: pause durably, then close the wire with the terminal
	// frame. A persistence failure is logged, never allowed to swallow the
	// terminal event.
	if _, err := s.updater.Apply(ctx, persistence.UpdateRequest{
		Mode:    persistence.ModeOrderPaused,
		OrderID: cell.OrderID(),
	}); err != nil {
		l.Warn("pause-on-expiry persistence update failed", slog.Any("err", err))
	}

	terminal := &orderspb.OrderStreamEvent{
		OrderReqID:              cell.OrderID(),
		StreamingResponseStatus: orderspb.StatusOrderPaused,
	}
	if err := stream.Send(terminal); err != nil {
		l.Warn("terminal frame delivery failed", slog.Any("err", err))
	}

	l.Info("order stream expired", slog.Time("expiry_at", cell.ExpiryAt()))
	return nil
}

// notifySellers publishes the proposal request on the bus and, when asked,
// fans out chat messages as a scheduled background task. Chat fan-out is
// per-stream work: it dies with the stream context and is registered on the
// cell so the sweeper can cancel it too.
func (s *OrderEventsService) notifySellers(ctx context.Context, cell *registry.OrderCell, sellers []model.SellerEntry, kind model.NotificationType, l *slog.Logger) {
	snap := cell.Snapshot()

	if kind == model.NotifyGChat {
		streamCtx, cancel := context.WithCancel(ctx)
		cancelID := "chat-" + uuid.NewString()
		cell.RegisterCancel(cancelID, cancel)

		orderID := cell.OrderID()
		_, err := s.tasks.Submit(scheduler.Task{
			OrderID:  orderID,
			Priority: scheduler.PriorityMedium,
			Run: func(taskCtx context.Context) error {
				defer cell.ReleaseCancel(cancelID)
				for _, seller := range sellers {
					if streamCtx.Err() != nil || taskCtx.Err() != nil {
						return nil
					}
					s.chat.Notify(streamCtx, fmt.Sprintf(
						"Proposal request: order %s for seller %s (%.1f km)",
						orderID, seller.SellerID, seller.DistanceKM,
					))
				}
				return nil
			},
		})
		if err != nil {
			cell.ReleaseCancel(cancelID)
			l.Warn("chat fan-out not scheduled", slog.Any("err", err))
		}
	}

	s.notifier.Publish(ctx, pubsub.TopicSellerNotify, pubsub.KeyPrpRequest, pubsub.Notification{
		OrderID: cell.OrderID(),
		Session: snap.Session,
		Body:    fmt.Sprintf("Proposal request open for order %s", cell.OrderID()),
	})

	l.Info("sellers notified", slog.Int("count", len(sellers)))
}

// eventFor maps one parsed signal to its wire frame, or nil when the signal
// references a proposal this order does not know (logged and skipped).
func (s *OrderEventsService) eventFor(cell *registry.OrderCell, sig model.Signal, l *slog.Logger) *orderspb.OrderStreamEvent {
	if !cell.HasProposal(sig.ProposalID()) {
		l.Warn("signal for unknown proposal skipped", slog.String("signal", sig.Wire()))
		return nil
	}

	ev := &orderspb.OrderStreamEvent{
		OrderReqID: cell.OrderID(),
		ProposalID: sig.ProposalID(),
	}

	switch v := sig.(type) {
	case model.ProposalSignal:
		switch v.Code {
		case model.CodeNew:
			ev.StreamingResponseStatus = orderspb.StatusNewProposal
		case model.CodeClosed:
			ev.StreamingResponseStatus = orderspb.StatusProposalClosed
		case model.CodeEditLock:
			ev.StreamingResponseStatus = orderspb.StatusEditLock
		default:
			l.Warn("unmapped signal code skipped", slog.String("signal", v.Wire()))
			return nil
		}
	case model.FollowUpSignal:
		ev.StreamingResponseStatus = orderspb.StatusProposalUpdate
		ev.FollowUpID = v.FollowUp
	default:
		l.Warn("unknown signal variant skipped", slog.String("signal", sig.Wire()))
		return nil
	}
	return ev
}

// ProcessFollowUp applies one follow-up id across its audience. The reply
// preserves audience order; an empty audience is a valid no-op.
func (s *OrderEventsService) ProcessFollowUp(ctx context.Context, req *orderspb.ProcessFollowUpRequest) (*orderspb.ProcessFollowUpResponse, error) {
	if req.OrderReqID == "" {
		return nil, fault.GRPCStatus(fault.New(fault.Validation, "order_req_id is required"))
	}
	if len(req.Audience) == 0 {
		return &orderspb.ProcessFollowUpResponse{}, nil
	}

	results, err := s.followups.Apply(ctx, req.OrderReqID, req.Audience, req.OrderFollowUpID)
	if err != nil {
		return nil, fault.GRPCStatus(err)
	}

	return &orderspb.ProcessFollowUpResponse{NsFollowUpResp: results}, nil
}
