package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/domain/registry"
)

type fakeFacade struct {
	updates     []persistence.UpdateRequest
	updateResp  persistence.UpdateResponse
	updateErr   error
	orderCtx    persistence.OrderContext
	orderCtxErr error
	sellers     []persistence.SellerRef
	sellersErr  error
}

func (f *fakeFacade) Update(_ context.Context, req persistence.UpdateRequest) (persistence.UpdateResponse, error) {
	f.updates = append(f.updates, req)
	return f.updateResp, f.updateErr
}

func (f *fakeFacade) OrderContext(context.Context, string) (persistence.OrderContext, error) {
	return f.orderCtx, f.orderCtxErr
}

func (f *fakeFacade) SellersByIndustry(context.Context, string) ([]persistence.SellerRef, error) {
	return f.sellers, f.sellersErr
}

type fakeOracle struct {
	distances map[string]float64
	err       error
	calls     int
}

func (f *fakeOracle) BetweenKM(_ context.Context, _, to string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.distances[to], nil
}

type published struct {
	topic pubsub.Topic
	key   pubsub.Key
	n     pubsub.Notification
}

type fakeNotifier struct {
	sent []published
}

func (f *fakeNotifier) Publish(_ context.Context, topic pubsub.Topic, key pubsub.Key, n pubsub.Notification) bool {
	f.sent = append(f.sent, published{topic, key, n})
	return true
}

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newCell(t *testing.T, orderID string) *registry.OrderCell {
	t.Helper()
	reg := registry.NewRegistry(testLogger())
	return reg.GetOrCreate(orderID, time.Hour, "session-1")
}

func TestSelectorNearestFirst(t *testing.T) {
	facade := &fakeFacade{
		orderCtx: persistence.OrderContext{OrderID: "O1", Industry: "steel", BuyerArea: "north"},
		sellers: []persistence.SellerRef{
			{SellerID: "S-far", Area: "far"},
			{SellerID: "S-near", Area: "near"},
			{SellerID: "S-mid", Area: "mid"},
			{SellerID: "S-farthest", Area: "farthest"},
		},
	}
	oracle := &fakeOracle{distances: map[string]float64{
		"far": 40, "near": 2, "mid": 9, "farthest": 120,
	}}
	sel := NewSellerSelector(facade, oracle, 3, 5.0, 16, testLogger())

	cell := newCell(t, "O1")
	entries, err := sel.Select(context.Background(), cell)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "S-near", entries[0].SellerID)
	assert.Equal(t, "S-mid", entries[1].SellerID)
	assert.Equal(t, "S-far", entries[2].SellerID)

	// The selection is written into the order state.
	assert.Equal(t, entries, cell.Snapshot().Sellers)
}

func TestSelectorReturnsExistingSelection(t *testing.T) {
	facade := &fakeFacade{orderCtxErr: errors.New("facade down")}
	sel := NewSellerSelector(facade, &fakeOracle{}, 3, 5.0, 16, testLogger())

	cell := newCell(t, "O1")
	prior := []model.SellerEntry{{SellerID: "S1", DistanceKM: 1}}
	require.NoError(t, cell.SetSellers(prior))

	// The facade is never consulted once sellers are set.
	entries, err := sel.Select(context.Background(), cell)
	require.NoError(t, err)
	assert.Equal(t, prior, entries)
}

func TestSelectorOracleFallback(t *testing.T) {
	facade := &fakeFacade{
		orderCtx: persistence.OrderContext{Industry: "steel", BuyerArea: "north"},
		sellers: []persistence.SellerRef{
			{SellerID: "S1", Area: "a"},
			{SellerID: "S2", Area: "b"},
		},
	}
	oracle := &fakeOracle{err: errors.New("oracle timeout")}
	sel := NewSellerSelector(facade, oracle, 3, 5.0, 16, testLogger())

	entries, err := sel.Select(context.Background(), newCell(t, "O1"))
	require.NoError(t, err)

	// Every candidate degrades to the fallback distance; enumeration order
	// breaks the tie.
	require.Len(t, entries, 2)
	assert.Equal(t, "S1", entries[0].SellerID)
	assert.Equal(t, 5.0, entries[0].DistanceKM)
	assert.Equal(t, "S2", entries[1].SellerID)
	assert.Equal(t, 5.0, entries[1].DistanceKM)
}

func TestSelectorCachesDistances(t *testing.T) {
	facade := &fakeFacade{
		orderCtx: persistence.OrderContext{Industry: "steel", BuyerArea: "north"},
		sellers:  []persistence.SellerRef{{SellerID: "S1", Area: "a"}},
	}
	oracle := &fakeOracle{distances: map[string]float64{"a": 3}}
	sel := NewSellerSelector(facade, oracle, 3, 5.0, 16, testLogger())

	_, err := sel.Select(context.Background(), newCell(t, "O1"))
	require.NoError(t, err)
	_, err = sel.Select(context.Background(), newCell(t, "O2"))
	require.NoError(t, err)

	assert.Equal(t, 1, oracle.calls)
}

func TestSelectorFatalFailures(t *testing.T) {
	t.Run("order context", func(t *testing.T) {
		facade := &fakeFacade{orderCtxErr: errors.New("down")}
		sel := NewSellerSelector(facade, &fakeOracle{}, 3, 5.0, 16, testLogger())

		_, err := sel.Select(context.Background(), newCell(t, "O1"))
		assert.Equal(t, fault.Unavailable, fault.KindOf(err))
	})

	t.Run("no candidates", func(t *testing.T) {
		facade := &fakeFacade{orderCtx: persistence.OrderContext{Industry: "steel"}}
		sel := NewSellerSelector(facade, &fakeOracle{}, 3, 5.0, 16, testLogger())

		_, err := sel.Select(context.Background(), newCell(t, "O1"))
		assert.Equal(t, fault.NotFound, fault.KindOf(err))
	})
}

func TestUpdaterPublishesOnFailure(t *testing.T) {
	facade := &fakeFacade{updateErr: errors.New("persistence down")}
	notifier := &fakeNotifier{}
	up := NewProposalUpdater(facade, notifier, testLogger())

	_, err := up.Apply(context.Background(), persistence.UpdateRequest{
		Mode:    persistence.ModeProposalUpdate,
		OrderID: "O1",
	})
	require.Error(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, pubsub.TopicPrpFailures, notifier.sent[0].topic)
	assert.Equal(t, pubsub.KeyPrpUpdates, notifier.sent[0].key)
	assert.Equal(t, "O1", notifier.sent[0].n.OrderID)
}

func TestUpdaterPassesThroughOnSuccess(t *testing.T) {
	facade := &fakeFacade{updateResp: persistence.UpdateResponse{FollowUpID: "F-O1-deadbeef"}}
	notifier := &fakeNotifier{}
	up := NewProposalUpdater(facade, notifier, testLogger())

	res, err := up.Apply(context.Background(), persistence.UpdateRequest{Mode: persistence.ModeUserEdits})
	require.NoError(t, err)
	assert.Equal(t, "F-O1-deadbeef", res.FollowUpID)
	assert.Empty(t, notifier.sent)
}

func followUpFixture(t *testing.T, facade *fakeFacade) (FollowUpApplier, *registry.OrderCell) {
	t.Helper()
	reg := registry.NewRegistry(testLogger())
	cell := reg.GetOrCreate("O1", time.Hour, "session-1")
	require.NoError(t, cell.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted}))
	require.NoError(t, cell.AppendProposal(model.Proposal{ProposalID: "P2", Status: model.ProposalSubmitted}))
	require.NoError(t, cell.SetProposalStatus("P2", model.ProposalEditLock))

	updater := NewProposalUpdater(facade, &fakeNotifier{}, testLogger())
	return NewFollowUpService(reg, updater, testLogger()), cell
}

func TestFollowUpApply(t *testing.T) {
	facade := &fakeFacade{}
	svc, _ := followUpFixture(t, facade)

	results, err := svc.Apply(context.Background(), "O1", []string{"P1", "P2", "P-missing"}, "F-O1-00000001")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "P1", results[0].Audience)
	assert.Equal(t, orderspb.FollowUpUpdated, results[0].Status)
	_, perr := time.Parse(time.RFC3339, results[0].AddedTime)
	assert.NoError(t, perr)

	// EDITLOCK entries are reported, never written.
	assert.Equal(t, orderspb.FollowUpEditLock, results[1].Status)
	assert.Empty(t, results[1].AddedTime)

	assert.Equal(t, orderspb.FollowUpFailed, results[2].Status)

	// Exactly one write reached persistence, for P1.
	require.Len(t, facade.updates, 1)
	assert.Equal(t, persistence.ModeUserEdits, facade.updates[0].Mode)
	assert.Equal(t, "P1", facade.updates[0].ProposalID)
	assert.Equal(t, "F-O1-00000001", facade.updates[0].OrderFollowUpID)
}

func TestFollowUpPersistenceFailure(t *testing.T) {
	facade := &fakeFacade{updateErr: errors.New("persistence down")}
	svc, _ := followUpFixture(t, facade)

	results, err := svc.Apply(context.Background(), "O1", []string{"P1"}, "F-O1-00000001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, orderspb.FollowUpFailed, results[0].Status)
}

func TestFollowUpUnknownOrder(t *testing.T) {
	svc, _ := followUpFixture(t, &fakeFacade{})

	_, err := svc.Apply(context.Background(), "O-missing", []string{"P1"}, "F-1")
	assert.Equal(t, fault.NotFound, fault.KindOf(err))
}

type panickingUpdater struct{}

func (panickingUpdater) Apply(context.Context, persistence.UpdateRequest) (persistence.UpdateResponse, error) {
	panic("boom")
}

func TestFollowUpRecoversPanic(t *testing.T) {
	reg := registry.NewRegistry(testLogger())
	cell := reg.GetOrCreate("O1", time.Hour, "s")
	require.NoError(t, cell.AppendProposal(model.Proposal{ProposalID: "P1", Status: model.ProposalSubmitted}))

	svc := NewFollowUpService(reg, panickingUpdater{}, testLogger())
	results, err := svc.Apply(context.Background(), "O1", []string{"P1"}, "F-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, orderspb.FollowUpError, results[0].Status)
}

func TestExpireHookPausesOrder(t *testing.T) {
	facade := &fakeFacade{}
	hook := NewExpireHook(NewProposalUpdater(facade, &fakeNotifier{}, testLogger()), testLogger())

	hook(context.Background(), newCell(t, "O1"))

	require.Len(t, facade.updates, 1)
	assert.Equal(t, persistence.ModeOrderPaused, facade.updates[0].Mode)
	assert.Equal(t, "O1", facade.updates[0].OrderID)
}
