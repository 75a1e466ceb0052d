package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/storefront-go/internal/order"
)

type fakeCartCleaner struct {
	err   error
	calls []struct {
		userID     string
		productIDs []string
	}
}

func (f *fakeCartCleaner) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	f.calls = append(f.calls, struct {
		userID     string
		productIDs []string
	}{userID, productIDs})
	return f.err
}

type fakeCheckpoints struct {
	seen    map[string]int64
	seenErr error
	markErr error
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{seen: map[string]int64{}}
}

func (f *fakeCheckpoints) Seen(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error) {
	if f.seenErr != nil {
		return false, f.seenErr
	}
	last, ok := f.seen[consumerName+"/"+partitionKey]
	return ok && seq <= last, nil
}

func (f *fakeCheckpoints) MarkSeen(ctx context.Context, consumerName, partitionKey string, seq int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	key := consumerName + "/" + partitionKey
	if f.seen[key] < seq {
		f.seen[key] = seq
	}
	return nil
}

func orderPlacedBody(t *testing.T, seq int64) []byte {
	t.Helper()

	o := &order.Order{
		ID:      "order-1",
		BuyerID: "buyer-1",
		Items: []order.Item{
			{ProductID: "p1", SellerID: "s1", Quantity: 2, UnitPrice: 10},
			{ProductID: "p2", SellerID: "s2", Quantity: 1, UnitPrice: 7.5},
		},
		TotalAmount: 27.5,
	}
	body, err := json.Marshal(BuildOrderPlacedEnvelope(o, seq, "storefront"))
	require.NoError(t, err)
	return body
}

func TestCartReconciler_RemovesOrderedLines(t *testing.T) {
	carts := &fakeCartCleaner{}
	checkpoints := newFakeCheckpoints()
	handler := CartReconcilerHandler(carts, checkpoints, zerolog.Nop())

	require.NoError(t, handler(context.Background(), orderPlacedBody(t, 1)))

	require.Len(t, carts.calls, 1)
	require.Equal(t, "buyer-1", carts.calls[0].userID)
	require.ElementsMatch(t, []string{"p1", "p2"}, carts.calls[0].productIDs)
}

func TestCartReconciler_SkipsReplays(t *testing.T) {
	carts := &fakeCartCleaner{}
	checkpoints := newFakeCheckpoints()
	handler := CartReconcilerHandler(carts, checkpoints, zerolog.Nop())

	body := orderPlacedBody(t, 1)
	require.NoError(t, handler(context.Background(), body))
	require.NoError(t, handler(context.Background(), body))

	require.Len(t, carts.calls, 1)
}

func TestCartReconciler_RejectsMalformedBody(t *testing.T) {
	handler := CartReconcilerHandler(&fakeCartCleaner{}, newFakeCheckpoints(), zerolog.Nop())

	require.Error(t, handler(context.Background(), []byte("{not json")))
}

func TestCartReconciler_RejectsWrongEvent(t *testing.T) {
	env := BuildOrderStatusChangedEnvelope(OrderStatusChangedPayload{
		OrderID: "order-1", BuyerID: "buyer-1", OldStatus: "pending", NewStatus: "confirmed",
	}, 1, "storefront")
	body, err := json.Marshal(env)
	require.NoError(t, err)

	handler := CartReconcilerHandler(&fakeCartCleaner{}, newFakeCheckpoints(), zerolog.Nop())
	require.Error(t, handler(context.Background(), body))
}

func TestCartReconciler_RemoveFailureNacks(t *testing.T) {
	carts := &fakeCartCleaner{err: errors.New("connection reset")}
	checkpoints := newFakeCheckpoints()
	handler := CartReconcilerHandler(carts, checkpoints, zerolog.Nop())

	require.Error(t, handler(context.Background(), orderPlacedBody(t, 1)))

	// The checkpoint only advances after a successful removal, so a
	// redelivery of this event is processed, not skipped.
	seen, err := checkpoints.Seen(context.Background(), "cart-reconciler", "order-1", 1)
	require.NoError(t, err)
	require.False(t, seen)
}
