package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/storefront-go/internal/dedup"
)

const cartReconcilerName = "cart-reconciler"

// CartCleaner is the slice of the cart repository the reconciler needs.
type CartCleaner interface {
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
}

// CartReconcilerHandler heals the non-fatal tail of checkout: when a cart
// clear failed after an order committed, the OrderPlaced event re-drives the
// deletion of the ordered lines. Processing is idempotent: the deletes are
// no-ops for already-cleared carts, and the dedup checkpoint skips replays.
func CartReconcilerHandler(carts CartCleaner, checkpoints dedup.Repository, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var env OrderPlacedEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("unmarshal OrderPlaced: %w", err)
		}
		if err := env.Validate(OrderPlacedEventName, OrderPlacedEventVersion); err != nil {
			return fmt.Errorf("invalid envelope: %w", err)
		}

		seen, err := checkpoints.Seen(ctx, cartReconcilerName, env.PartitionKey, env.Sequence)
		if err != nil {
			return fmt.Errorf("dedup lookup: %w", err)
		}
		if seen {
			logger.Debug().Str("order_id", env.Payload.OrderID).Msg("skipping replayed OrderPlaced")
			return nil
		}

		productIDs := make([]string, 0, len(env.Payload.Items))
		for _, it := range env.Payload.Items {
			productIDs = append(productIDs, it.ProductID)
		}

		if err := carts.RemoveItems(ctx, env.Payload.BuyerID, productIDs); err != nil {
			return fmt.Errorf("reconcile cart for order %s: %w", env.Payload.OrderID, err)
		}

		if err := checkpoints.MarkSeen(ctx, cartReconcilerName, env.PartitionKey, env.Sequence); err != nil {
			return fmt.Errorf("dedup checkpoint: %w", err)
		}

		logger.Info().
			Str("order_id", env.Payload.OrderID).
			Str("buyer_id", env.Payload.BuyerID).
			Int("lines", len(productIDs)).
			Msg("cart reconciled after order placement")
		return nil
	}
}
