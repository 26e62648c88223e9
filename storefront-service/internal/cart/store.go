package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/storage"
)

// StorageKey is the fixed key the cart lives under. Together with the JSON
// shape of domain.Cart it is a durable contract: carts saved under another
// schema load as empty.
const StorageKey = "cart-storage"

// Store persists a cart into a key-value Storage. Faults never reach the
// caller: reads degrade to an empty cart, writes are logged.
type Store struct {
	kv     storage.Storage
	logger *slog.Logger
}

func NewStore(kv storage.Storage, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Load returns the persisted cart, or an empty one when nothing usable is
// stored. Totals are recomputed from the items.
func (s *Store) Load(ctx context.Context) domain.Cart {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "cart read failed, starting empty", "err", err)
		}
		return domain.EmptyCart()
	}

	var persisted domain.Cart
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		s.logger.WarnContext(ctx, "cart data unparseable, starting empty", "err", err)
		return domain.EmptyCart()
	}
	if err := persisted.Validate(); err != nil {
		s.logger.WarnContext(ctx, "cart data malformed, starting empty", "err", err)
		return domain.EmptyCart()
	}

	return domain.NewCart(persisted.Items)
}

// Save writes the whole cart. A failed write is logged and dropped; the
// persisted copy stays stale until the next successful Save.
func (s *Store) Save(ctx context.Context, c domain.Cart) {
	data, err := json.Marshal(c)
	if err != nil {
		s.logger.ErrorContext(ctx, "cart marshal failed", "err", err)
		return
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.ErrorContext(ctx, "cart write failed", "err", err, "items", len(c.Items))
	}
}
