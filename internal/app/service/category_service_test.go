package service

import (
	"testing"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCategoryServiceTest(t *testing.T) (CategoryService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	categoryRepo := repository.NewCategoryRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	return NewCategoryService(categoryRepo, productRepo), testDB
}

func TestCategoryService_CreateCategory(t *testing.T) {
	categoryService, _ := setupCategoryServiceTest(t)

	category, err := categoryService.CreateCategory("Home & Garden", "Things for the house")
	require.NoError(t, err)
	assert.Equal(t, "home-garden", category.Slug)

	_, err = categoryService.CreateCategory("Home & Garden", "dupe")
	assert.ErrorIs(t, err, ErrDuplicateCategorySlug)
}

func TestCategoryService_GetCategory(t *testing.T) {
	categoryService, _ := setupCategoryServiceTest(t)

	created, err := categoryService.CreateCategory("Books", "")
	require.NoError(t, err)

	byID, err := categoryService.GetCategory(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", byID.Name)

	bySlug, err := categoryService.GetCategoryBySlug("books")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	_, err = categoryService.GetCategory(9999)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_UpdateCategory(t *testing.T) {
	categoryService, _ := setupCategoryServiceTest(t)

	created, err := categoryService.CreateCategory("Books", "")
	require.NoError(t, err)
	other, err := categoryService.CreateCategory("Music", "")
	require.NoError(t, err)

	newName := "Comics"
	updated, err := categoryService.UpdateCategory(created.ID, &newName, nil)
	require.NoError(t, err)
	assert.Equal(t, "Comics", updated.Name)
	assert.Equal(t, "comics", updated.Slug)

	// Renaming onto another category's slug is refused
	clash := "Music"
	_, err = categoryService.UpdateCategory(created.ID, &clash, nil)
	assert.ErrorIs(t, err, ErrDuplicateCategorySlug)

	_ = other
}

func TestCategoryService_DeleteCategory_RefusesWhenNotEmpty(t *testing.T) {
	categoryService, testDB := setupCategoryServiceTest(t)

	category, err := categoryService.CreateCategory("Books", "")
	require.NoError(t, err)

	product := &model.Product{
		CategoryID: category.ID,
		Name:       "Novel",
		Slug:       "novel",
		Price:      decimal.NewFromInt(12000),
	}
	require.NoError(t, testDB.Create(product).Error)

	assert.ErrorIs(t, categoryService.DeleteCategory(category.ID), ErrCategoryNotEmpty)

	require.NoError(t, testDB.Delete(product).Error)
	require.NoError(t, categoryService.DeleteCategory(category.ID))

	_, err = categoryService.GetCategory(category.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
