package repository

import (
	"testing"
	"time"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartRepoTest(t *testing.T) (CartRepository, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	category := &model.Category{Name: "Books", Slug: "books"}
	require.NoError(t, testDB.Create(category).Error)

	product := &model.Product{
		CategoryID:    category.ID,
		Name:          "Paperback",
		Slug:          "paperback",
		Price:         decimal.NewFromInt(1500),
		StockQuantity: 20,
	}
	require.NoError(t, testDB.Create(product).Error)

	return NewCartRepository(testDB), product, testDB
}

func TestCartRepository_CreateAndFind(t *testing.T) {
	repo, _, _ := setupCartRepoTest(t)

	sessionID := "sess-1"
	cart := &model.Cart{SessionID: &sessionID}
	require.NoError(t, repo.CreateCart(cart))
	assert.NotZero(t, cart.ID)

	found, err := repo.FindBySessionID("sess-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)

	byID, err := repo.FindByID(cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, byID.ID)
}

func TestCartRepository_FindBySessionID_ExcludesClaimedCarts(t *testing.T) {
	repo, _, testDB := setupCartRepoTest(t)

	user := &model.User{Email: "a@example.com", PasswordHash: "h", Name: "A"}
	require.NoError(t, testDB.Create(user).Error)

	sessionID := "sess-1"
	cart := &model.Cart{UserID: &user.ID, SessionID: &sessionID}
	require.NoError(t, repo.CreateCart(cart))

	// A cart already claimed by a user is not an anonymous session cart
	_, err := repo.FindBySessionID("sess-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_FindRecentAnonymous(t *testing.T) {
	repo, product, testDB := setupCartRepoTest(t)

	since := time.Now().Add(-time.Hour)

	// Empty anonymous cart is not a candidate
	s1 := "empty"
	empty := &model.Cart{SessionID: &s1}
	require.NoError(t, repo.CreateCart(empty))

	_, err := repo.FindRecentAnonymous(since)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Anonymous cart with an item qualifies
	s2 := "full"
	full := &model.Cart{SessionID: &s2}
	require.NoError(t, repo.CreateCart(full))
	require.NoError(t, repo.CreateItem(&model.CartItem{
		CartID:    full.ID,
		ProductID: product.ID,
		Quantity:  2,
		Price:     product.Price,
	}))

	found, err := repo.FindRecentAnonymous(since)
	require.NoError(t, err)
	assert.Equal(t, full.ID, found.ID)
	require.Len(t, found.Items, 1)

	// Stale carts are out of the window
	require.NoError(t, testDB.Model(full).Update("created_at", time.Now().Add(-2*time.Hour)).Error)
	_, err = repo.FindRecentAnonymous(since)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_FindRecentAnonymous_IgnoresUserCarts(t *testing.T) {
	repo, product, testDB := setupCartRepoTest(t)

	user := &model.User{Email: "a@example.com", PasswordHash: "h", Name: "A"}
	require.NoError(t, testDB.Create(user).Error)

	cart := &model.Cart{UserID: &user.ID}
	require.NoError(t, repo.CreateCart(cart))
	require.NoError(t, repo.CreateItem(&model.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  1,
		Price:     product.Price,
	}))

	_, err := repo.FindRecentAnonymous(time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_UpdateSessionID(t *testing.T) {
	repo, _, _ := setupCartRepoTest(t)

	s := "before"
	cart := &model.Cart{SessionID: &s}
	require.NoError(t, repo.CreateCart(cart))

	require.NoError(t, repo.UpdateSessionID(cart.ID, "after"))

	found, err := repo.FindBySessionID("after")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)

	err = repo.UpdateSessionID(9999, "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_ItemLifecycle(t *testing.T) {
	repo, product, _ := setupCartRepoTest(t)

	s := "sess"
	cart := &model.Cart{SessionID: &s}
	require.NoError(t, repo.CreateCart(cart))

	item := &model.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  2,
		Price:     product.Price,
	}
	require.NoError(t, repo.CreateItem(item))

	found, err := repo.FindItem(cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	found.Quantity = 5
	require.NoError(t, repo.UpdateItem(found))

	byID, err := repo.FindItemByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, byID.Quantity)

	require.NoError(t, repo.DeleteItem(item.ID))
	assert.ErrorIs(t, repo.DeleteItem(item.ID), gorm.ErrRecordNotFound)
}

func TestCartRepository_UniqueCartProduct(t *testing.T) {
	repo, product, _ := setupCartRepoTest(t)

	s := "sess"
	cart := &model.Cart{SessionID: &s}
	require.NoError(t, repo.CreateCart(cart))

	require.NoError(t, repo.CreateItem(&model.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  1,
		Price:     product.Price,
	}))

	// Second row for the same product in the same cart violates the index
	err := repo.CreateItem(&model.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  1,
		Price:     product.Price,
	})
	assert.Error(t, err)
}

func TestCartRepository_DeleteItemsByCartID(t *testing.T) {
	repo, product, testDB := setupCartRepoTest(t)

	second := &model.Product{
		CategoryID:    product.CategoryID,
		Name:          "Hardcover",
		Slug:          "hardcover",
		Price:         decimal.NewFromInt(3000),
		StockQuantity: 5,
	}
	require.NoError(t, testDB.Create(second).Error)

	s := "sess"
	cart := &model.Cart{SessionID: &s}
	require.NoError(t, repo.CreateCart(cart))
	require.NoError(t, repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1, Price: product.Price}))
	require.NoError(t, repo.CreateItem(&model.CartItem{CartID: cart.ID, ProductID: second.ID, Quantity: 2, Price: second.Price}))

	require.NoError(t, repo.DeleteItemsByCartID(cart.ID))

	found, err := repo.FindByID(cart.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 0)

	// Clearing an already empty cart is fine
	require.NoError(t, repo.DeleteItemsByCartID(cart.ID))
}
