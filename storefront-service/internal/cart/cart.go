package cart

import (
	"context"
	"sync"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Facade is the public cart API for one browsing session. Each mutation
// derives a new domain.Cart from the current one, swaps it in and writes it
// through to the Store.
type Facade struct {
	mu    sync.Mutex
	store *Store
	cart  domain.Cart
}

// Open loads the session cart from store.
func Open(ctx context.Context, store *Store) *Facade {
	return &Facade{store: store, cart: store.Load(ctx)}
}

// Cart returns the current cart value.
func (f *Facade) Cart() domain.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart
}

// AddToCart increments the quantity of an existing item or appends a new one.
// A quantity below one is treated as one.
func (f *Facade) AddToCart(ctx context.Context, product domain.Product, quantity int) domain.Cart {
	if quantity < 1 {
		quantity = 1
	}
	return f.mutate(ctx, func(c domain.Cart) []domain.CartItem {
		items := append([]domain.CartItem(nil), c.Items...)
		if _, i, ok := c.Find(product.ID); ok {
			items[i].Quantity += quantity
			return items
		}
		return append(items, domain.CartItem{Product: product, Quantity: quantity})
	})
}

// RemoveFromCart drops the item for productID. Removing an absent item is a no-op.
func (f *Facade) RemoveFromCart(ctx context.Context, productID int64) domain.Cart {
	return f.mutate(ctx, func(c domain.Cart) []domain.CartItem {
		items := make([]domain.CartItem, 0, len(c.Items))
		for _, item := range c.Items {
			if item.Product.ID != productID {
				items = append(items, item)
			}
		}
		return items
	})
}

// UpdateQuantity sets the quantity in place; quantity <= 0 removes the item.
func (f *Facade) UpdateQuantity(ctx context.Context, productID int64, quantity int) domain.Cart {
	if quantity <= 0 {
		return f.RemoveFromCart(ctx, productID)
	}
	return f.mutate(ctx, func(c domain.Cart) []domain.CartItem {
		items := append([]domain.CartItem(nil), c.Items...)
		if _, i, ok := c.Find(productID); ok {
			items[i].Quantity = quantity
		}
		return items
	})
}

func (f *Facade) ClearCart(ctx context.Context) domain.Cart {
	return f.mutate(ctx, func(domain.Cart) []domain.CartItem { return nil })
}

func (f *Facade) GetCartItem(productID int64) (domain.CartItem, bool) {
	item, _, ok := f.Cart().Find(productID)
	return item, ok
}

func (f *Facade) TotalPrice() decimal.Decimal {
	return f.Cart().Total
}

func (f *Facade) TotalItems() int {
	return f.Cart().Count
}

func (f *Facade) mutate(ctx context.Context, next func(domain.Cart) []domain.CartItem) domain.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cart = domain.NewCart(next(f.cart))
	f.store.Save(ctx, f.cart)
	return f.cart
}
