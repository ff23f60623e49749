package store

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, st storage.Storage) *ProductStore {
	t.Helper()
	catalog := NewProductStore(st, testOptions())
	require.NoError(t, catalog.Initialize(context.Background()))
	return catalog
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestSeedCatalog(t *testing.T) {
	categories, products, err := SeedCatalog()
	require.NoError(t, err)
	assert.Len(t, categories, 3)
	assert.Len(t, products, 15)
}

func TestCatalog_InitializeSeedsStorage(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	newCatalog(t, st)

	var stored []models.Product
	found, err := st.Load(ctx, storage.KeyProducts, &stored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, stored, 15)
}

func TestCatalog_QueryPagination(t *testing.T) {
	catalog := newCatalog(t, storage.NewMemoryStorage())

	first := catalog.Query(context.Background(), models.ProductQuery{})
	assert.Len(t, first.Products, DefaultPageSize)
	assert.Equal(t, 15, first.TotalItems)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 1, first.CurrentPage)
	assert.True(t, first.HasNextPage)
	assert.False(t, first.HasPrevPage)

	second := catalog.Query(context.Background(), models.ProductQuery{Page: 2})
	assert.Len(t, second.Products, 3)
	assert.False(t, second.HasNextPage)
	assert.True(t, second.HasPrevPage)

	beyond := catalog.Query(context.Background(), models.ProductQuery{Page: 9})
	assert.Empty(t, beyond.Products)
}

func TestCatalog_QueryFiltersAndSort(t *testing.T) {
	catalog := newCatalog(t, storage.NewMemoryStorage())
	ctx := context.Background()

	page := catalog.Query(ctx, models.ProductQuery{CategoryID: "men", SortBy: "price", SortOrder: "asc"})
	require.NotEmpty(t, page.Products)
	for i, p := range page.Products {
		assert.Equal(t, "men", p.CategoryID)
		if i > 0 {
			assert.LessOrEqual(t, page.Products[i-1].Price, p.Price)
		}
	}

	page = catalog.Query(ctx, models.ProductQuery{SortBy: "rating", SortOrder: "desc"})
	for i := 1; i < len(page.Products); i++ {
		assert.GreaterOrEqual(t, page.Products[i-1].Rating, page.Products[i].Rating)
	}

	page = catalog.Query(ctx, models.ProductQuery{CategoryID: "men", SubcategoryID: "ethnic"})
	for _, p := range page.Products {
		assert.Equal(t, "ethnic", p.SubcategoryID)
	}
}

func TestCatalog_QuerySearch(t *testing.T) {
	catalog := newCatalog(t, storage.NewMemoryStorage())

	page := catalog.Query(context.Background(), models.ProductQuery{Search: "SILK"})
	assert.Contains(t, ids(page.Products), "m1")
	for _, p := range page.Products {
		assert.True(t, MatchesSearch(p, "silk"))
	}
}

type fakeIndex struct {
	ids []string
	err error
}

func (f fakeIndex) MatchIDs(context.Context, string) ([]string, error) { return f.ids, f.err }

func TestCatalog_QueryUsesSearchIndex(t *testing.T) {
	catalog := newCatalog(t, storage.NewMemoryStorage()).
		WithSearchIndex(fakeIndex{ids: []string{"w1", "k2"}})

	page := catalog.Query(context.Background(), models.ProductQuery{Search: "anything"})
	assert.ElementsMatch(t, []string{"w1", "k2"}, ids(page.Products))
}

func TestCatalog_QueryFallsBackWhenIndexFails(t *testing.T) {
	catalog := newCatalog(t, storage.NewMemoryStorage()).
		WithSearchIndex(fakeIndex{err: errors.New("down")})

	page := catalog.Query(context.Background(), models.ProductQuery{Search: "silk"})
	assert.Contains(t, ids(page.Products), "m1")
}

func TestCatalog_UpdateProductStock(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	catalog := newCatalog(t, st)

	require.NoError(t, catalog.UpdateProductStock(ctx, "m1", -3))
	stock, ok := catalog.StockOf("m1")
	require.True(t, ok)
	assert.Zero(t, stock)

	assert.ErrorIs(t, catalog.UpdateProductStock(ctx, "nope", 1), ErrProductNotFound)

	reloaded := newCatalog(t, st)
	p, _ := reloaded.GetProductByID("m1")
	assert.Zero(t, p.Stock)
}

func TestCatalog_DecrementStock(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t, storage.NewMemoryStorage())
	m1, _ := catalog.GetProductByID("m1")
	m2, _ := catalog.GetProductByID("m2")

	err := catalog.DecrementStock(ctx, []models.CartItem{
		{Product: m1, Quantity: 2},
		{Product: m2, Quantity: 1},
	})
	require.NoError(t, err)

	stock, _ := catalog.StockOf("m1")
	assert.Equal(t, m1.Stock-2, stock)
	stock, _ = catalog.StockOf("m2")
	assert.Equal(t, m2.Stock-1, stock)
}

func TestCatalog_DecrementStockAllOrNothing(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t, storage.NewMemoryStorage())
	m1, _ := catalog.GetProductByID("m1")
	k4, _ := catalog.GetProductByID("k4")

	err := catalog.DecrementStock(ctx, []models.CartItem{
		{Product: m1, Quantity: 1},
		{Product: k4, Quantity: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfStock)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Conflicts, 1)
	assert.Equal(t, "k4", stockErr.Conflicts[0].ProductID)

	stock, _ := catalog.StockOf("m1")
	assert.Equal(t, m1.Stock, stock)
}

func TestProduct_DiscountPercent(t *testing.T) {
	assert.Equal(t, 25, models.Product{Price: 75, OriginalPrice: 100}.DiscountPercent())
	assert.Zero(t, models.Product{Price: 75}.DiscountPercent())
	assert.Zero(t, models.Product{Price: 75, OriginalPrice: 50}.DiscountPercent())
}

func TestCatalog_RestoreStock(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	catalog := newCatalog(t, st)
	m1, _ := catalog.GetProductByID("m1")
	items := []models.CartItem{{Product: m1, Quantity: 3}, {Product: product("ghost", 1, 1), Quantity: 1}}

	require.NoError(t, catalog.DecrementStock(ctx, items[:1]))
	require.NoError(t, catalog.RestoreStock(ctx, items))

	stock, _ := catalog.StockOf("m1")
	assert.Equal(t, m1.Stock, stock)
	stock, _ = newCatalog(t, st).StockOf("m1")
	assert.Equal(t, m1.Stock, stock)
}

func TestCatalog_FailedSaveKeepsStock(t *testing.T) {
	ctx := context.Background()
	st := &failingSaves{Storage: storage.NewMemoryStorage(), key: storage.KeyProducts}
	catalog := newCatalog(t, st)
	m1, _ := catalog.GetProductByID("m1")

	st.fail = true
	err := catalog.DecrementStock(ctx, []models.CartItem{{Product: m1, Quantity: 2}})
	require.ErrorIs(t, err, errBackendDown)
	stock, _ := catalog.StockOf("m1")
	assert.Equal(t, m1.Stock, stock)
}
