package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	t.Helper()
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestListProducts_ReturnsSeededProducts(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 6)

	for i, p := range products {
		assert.Equal(t, int64(i+1), p.ID)
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.IsPositive())
	}
}

func TestListProducts_LoadsTranslations(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)

	argan := products[0]
	assert.Equal(t, "Huile d'argan", argan.LocalizedName("fr"))
	assert.Equal(t, "زيت الأركان", argan.LocalizedName("ar"))
	assert.Equal(t, "Argan Oil", argan.LocalizedName("de"))

	// name-only translation keeps the default description
	pouf := products[5]
	assert.Equal(t, "Pouf en cuir", pouf.LocalizedName("fr"))
	assert.Equal(t, pouf.Description, pouf.LocalizedDescription("fr"))
}

func TestListProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListProducts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetProduct_ReturnsProduct(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := repo.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mint Tea", p.Name)
	assert.Equal(t, "8.50", p.Price.StringFixed(2))
	require.NotNil(t, p.SalePrice)
	assert.Equal(t, "6.90", p.SalePrice.StringFixed(2))
	assert.Equal(t, "Thé à la menthe", p.Names["fr"])
}

func TestGetProduct_WithoutSalePrice(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, p.SalePrice)
	assert.True(t, p.DisplayPrice().Equal(p.Price))
}

func TestGetProduct_IncorrectID_ReturnsNotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetProduct(context.Background(), -1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}
