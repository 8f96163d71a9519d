package repository

import (
	"testing"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductRepoTest(t *testing.T) (ProductRepository, *model.Category, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	category := &model.Category{Name: "Electronics", Slug: "electronics"}
	require.NoError(t, testDB.Create(category).Error)

	return NewProductRepository(testDB), category, testDB
}

func seedProduct(t *testing.T, repo ProductRepository, categoryID uint, name, slug string, price int64, stock int) *model.Product {
	product := &model.Product{
		CategoryID:    categoryID,
		Name:          name,
		Slug:          slug,
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
	}
	require.NoError(t, repo.Create(product))
	return product
}

func TestProductRepository_CreateAndFind(t *testing.T) {
	repo, category, _ := setupProductRepoTest(t)

	product := seedProduct(t, repo, category.ID, "Laptop", "laptop", 899000, 3)

	byID, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", byID.Name)
	assert.Equal(t, category.ID, byID.Category.ID)

	bySlug, err := repo.FindBySlug("laptop")
	require.NoError(t, err)
	assert.Equal(t, product.ID, bySlug.ID)

	_, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_FindWithFilter(t *testing.T) {
	repo, category, testDB := setupProductRepoTest(t)

	other := &model.Category{Name: "Books", Slug: "books"}
	require.NoError(t, testDB.Create(other).Error)

	seedProduct(t, repo, category.ID, "Laptop", "laptop", 899000, 3)
	seedProduct(t, repo, category.ID, "Mouse", "mouse", 15000, 0)
	seedProduct(t, repo, other.ID, "Novel", "novel", 12000, 10)

	// Category filter
	products, total, err := repo.FindWithFilter(ProductFilter{CategoryID: &category.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, products, 2)

	// In-stock filter
	products, total, err = repo.FindWithFilter(ProductFilter{InStock: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Search filter
	products, _, err = repo.FindWithFilter(ProductFilter{Search: "lap"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Laptop", products[0].Name)

	// Price window
	min := 10000.0
	max := 20000.0
	products, _, err = repo.FindWithFilter(ProductFilter{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestProductRepository_FindPopular(t *testing.T) {
	repo, category, testDB := setupProductRepoTest(t)

	a := seedProduct(t, repo, category.ID, "A", "a", 1000, 5)
	b := seedProduct(t, repo, category.ID, "B", "b", 1000, 5)
	outOfStock := seedProduct(t, repo, category.ID, "C", "c", 1000, 0)

	require.NoError(t, testDB.Model(a).Update("view_count", 10).Error)
	require.NoError(t, testDB.Model(b).Update("view_count", 50).Error)
	require.NoError(t, testDB.Model(outOfStock).Update("view_count", 100).Error)

	popular, err := repo.FindPopular(10)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, b.ID, popular[0].ID)
	assert.Equal(t, a.ID, popular[1].ID)
}

func TestProductRepository_FindLowStock(t *testing.T) {
	repo, category, _ := setupProductRepoTest(t)

	low := seedProduct(t, repo, category.ID, "Low", "low", 1000, 2)
	seedProduct(t, repo, category.ID, "Fine", "fine", 1000, 50)

	products, err := repo.FindLowStock()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, low.ID, products[0].ID)
}

func TestProductRepository_IncrementViewCount(t *testing.T) {
	repo, category, _ := setupProductRepoTest(t)

	product := seedProduct(t, repo, category.ID, "Laptop", "laptop", 899000, 3)

	require.NoError(t, repo.IncrementViewCount(product.ID))
	require.NoError(t, repo.IncrementViewCount(product.ID))

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.ViewCount)
}

func TestProductRepository_Delete(t *testing.T) {
	repo, category, _ := setupProductRepoTest(t)

	product := seedProduct(t, repo, category.ID, "Laptop", "laptop", 899000, 3)

	require.NoError(t, repo.Delete(product.ID))
	_, err := repo.FindByID(product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(product.ID), gorm.ErrRecordNotFound)
}

func TestProductRepository_CountByCategory(t *testing.T) {
	repo, category, _ := setupProductRepoTest(t)

	seedProduct(t, repo, category.ID, "A", "a", 1000, 1)
	seedProduct(t, repo, category.ID, "B", "b", 1000, 1)

	count, err := repo.CountByCategory(category.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
