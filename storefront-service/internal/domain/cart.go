package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot captured when an item is put in the cart.
type Product struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Names        map[string]string `json:"names,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	SalePrice    *decimal.Decimal  `json:"salePrice,omitempty"`
	ImageURL     string            `json:"imageUrl,omitempty"`
}

// LocalizedName returns the name for lang, falling back to the default name.
func (p Product) LocalizedName(lang string) string {
	if n := p.Names[lang]; n != "" {
		return n
	}
	return p.Name
}

func (p Product) LocalizedDescription(lang string) string {
	if d := p.Descriptions[lang]; d != "" {
		return d
	}
	return p.Description
}

// UnitPrice is the price used for cart totals and order lines: always the
// base price, never the sale price.
func (p Product) UnitPrice() decimal.Decimal {
	return p.Price
}

// DisplayPrice is what product cards show: the sale price when one is set.
func (p Product) DisplayPrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is unit price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an immutable value: every mutation builds a new Cart through NewCart
// so Total and Count always match Items.
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

var ErrInvalidCart = errors.New("invalid cart")

func EmptyCart() Cart {
	return Cart{Items: []CartItem{}, Total: decimal.Zero, Count: 0}
}

// NewCart copies items and derives Total and Count from them.
func NewCart(items []CartItem) Cart {
	c := Cart{Items: make([]CartItem, len(items)), Total: decimal.Zero}
	copy(c.Items, items)
	for _, item := range c.Items {
		c.Total = c.Total.Add(item.LineTotal())
		c.Count += item.Quantity
	}
	return c
}

// Find returns the item for productID and its position.
func (c Cart) Find(productID int64) (CartItem, int, bool) {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			return item, i, true
		}
	}
	return CartItem{}, -1, false
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Validate checks the structural invariants: unique product ids and
// quantities of at least one.
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %d has quantity %d", ErrInvalidCart, item.Product.ID, item.Quantity)
		}
		if _, dup := seen[item.Product.ID]; dup {
			return fmt.Errorf("%w: duplicate product %d", ErrInvalidCart, item.Product.ID)
		}
		seen[item.Product.ID] = struct{}{}
	}
	return nil
}

// Customer holds the contact and shipping fields entered at checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
}

var ErrInvalidCustomer = errors.New("invalid customer details")

func (c Customer) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidCustomer, strings.Join(missing, ", "))
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: email %q is malformed", ErrInvalidCustomer, c.Email)
	}
	return nil
}
