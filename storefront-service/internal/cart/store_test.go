package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/logger"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStorage fails reads and/or writes on demand
type failingStorage struct {
	*storage.MemoryStorage
	getErr error
	setErr error
	sets   int
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.MemoryStorage.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func newProduct(id int64, price string) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  "Product",
		Names: map[string]string{"fr": "Produit"},
		Price: decimal.RequireFromString(price),
	}
}

func assertSameCart(t *testing.T, want, got domain.Cart) {
	t.Helper()
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].Product.ID, got.Items[i].Product.ID)
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.True(t, want.Items[i].Product.Price.Equal(got.Items[i].Product.Price))
		assert.Equal(t, want.Items[i].Product.Names, got.Items[i].Product.Names)
	}
	assert.True(t, want.Total.Equal(got.Total), "total %s != %s", want.Total, got.Total)
	assert.Equal(t, want.Count, got.Count)
}

func TestLoad_Missing_ReturnsEmptyCart(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage(), logger.Discard())

	c := s.Load(context.Background())
	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Items)
	assert.True(t, c.Total.IsZero())
	assert.Equal(t, 0, c.Count)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), logger.Discard())

	want := domain.NewCart([]domain.CartItem{
		{Product: newProduct(1, "10.00"), Quantity: 2},
		{Product: newProduct(2, "0.99"), Quantity: 5},
	})
	s.Save(ctx, want)

	assertSameCart(t, want, s.Load(ctx))
}

func TestSave_WritesFixedKeyAndSchema(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStorage()
	s := NewStore(kv, logger.Discard())

	s.Save(ctx, domain.NewCart([]domain.CartItem{{Product: newProduct(3, "2.50"), Quantity: 2}}))

	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Contains(t, doc, "items")
	assert.Contains(t, doc, "total")
	assert.Contains(t, doc, "count")
	assert.JSONEq(t, "2", string(doc["count"]))
}

func TestLoad_CorruptData_ReturnsEmptyCart(t *testing.T) {
	cases := map[string]string{
		"truncated json": `{"items":[{"product":{"id":1`,
		"wrong schema":   `{"items":"nope","total":1,"count":1}`,
		"not json":       `hello`,
		"duplicate ids":  `{"items":[{"product":{"id":1,"price":"1"},"quantity":1},{"product":{"id":1,"price":"1"},"quantity":1}],"total":"2","count":2}`,
		"zero quantity":  `{"items":[{"product":{"id":1,"price":"1"},"quantity":0}],"total":"0","count":0}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := storage.NewMemoryStorage()
			require.NoError(t, kv.Set(ctx, StorageKey, raw))

			c := NewStore(kv, logger.Discard()).Load(ctx)
			assert.Empty(t, c.Items)
			assert.Equal(t, 0, c.Count)
		})
	}
}

func TestLoad_RecomputesStaleTotals(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStorage()
	raw := `{"items":[{"product":{"id":1,"name":"Tea","price":"4.00"},"quantity":3}],"total":"999","count":42}`
	require.NoError(t, kv.Set(ctx, StorageKey, raw))

	c := NewStore(kv, logger.Discard()).Load(ctx)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, "12.00", c.Total.StringFixed(2))
}

func TestLoad_ReadFault_ReturnsEmptyCart(t *testing.T) {
	kv := &failingStorage{MemoryStorage: storage.NewMemoryStorage(), getErr: errors.New("disk on fire")}

	c := NewStore(kv, logger.Discard()).Load(context.Background())
	assert.Empty(t, c.Items)
}

func TestSave_WriteFault_IsSwallowed(t *testing.T) {
	kv := &failingStorage{MemoryStorage: storage.NewMemoryStorage(), setErr: errors.New("quota exceeded")}
	s := NewStore(kv, logger.Discard())

	assert.NotPanics(t, func() {
		s.Save(context.Background(), domain.NewCart([]domain.CartItem{{Product: newProduct(1, "1.00"), Quantity: 1}}))
	})
	assert.Equal(t, 1, kv.sets)
	assert.Equal(t, 0, kv.Len())
}
