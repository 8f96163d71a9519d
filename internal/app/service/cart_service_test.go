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

func setupCartServiceTest(t *testing.T) (CartService, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := NewCartService(cartRepo, productRepo, testDB)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	category := &model.Category{Name: "Electronics", Slug: "electronics"}
	testDB.Create(category)

	product := &model.Product{
		CategoryID:    category.ID,
		Name:          "Test Product",
		Slug:          "test-product",
		Price:         decimal.NewFromInt(25000),
		StockQuantity: 10,
	}
	testDB.Create(product)

	return cartService, user, product, testDB
}

func createProduct(t *testing.T, testDB *gorm.DB, slug string, price int64, stock int) *model.Product {
	var category model.Category
	require.NoError(t, testDB.First(&category).Error)

	product := &model.Product{
		CategoryID:    category.ID,
		Name:          slug,
		Slug:          slug,
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func TestCartService_GetOrCreateCart_BySession(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "session-abc"}

	cart, err := cartService.GetOrCreateCart(identity)
	require.NoError(t, err)
	require.NotNil(t, cart.SessionID)
	assert.Equal(t, "session-abc", *cart.SessionID)
	assert.Nil(t, cart.UserID)

	// Second resolution returns the same cart, no duplicate
	again, err := cartService.GetOrCreateCart(identity)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_GetOrCreateCart_ByUser(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	identity := CartIdentity{UserID: &user.ID}

	cart, err := cartService.GetOrCreateCart(identity)
	require.NoError(t, err)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, user.ID, *cart.UserID)

	again, err := cartService.GetOrCreateCart(identity)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_GetOrCreateCart_CookieCartSurvivesSessionRotation(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(CartIdentity{SessionID: "old-session"})
	require.NoError(t, err)

	// Session rotated but the cart id cookie survived
	resolved, err := cartService.GetOrCreateCart(CartIdentity{
		SessionID:    "new-session",
		CookieCartID: &cart.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, cart.ID, resolved.ID)
	require.NotNil(t, resolved.SessionID)
	assert.Equal(t, "new-session", *resolved.SessionID)
}

func TestCartService_GetOrCreateCart_UserWinsOverCookie(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	anonymous, err := cartService.GetOrCreateCart(CartIdentity{SessionID: "s1"})
	require.NoError(t, err)

	resolved, err := cartService.GetOrCreateCart(CartIdentity{
		UserID:       &user.ID,
		SessionID:    "s1",
		CookieCartID: &anonymous.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.UserID)
	assert.Equal(t, user.ID, *resolved.UserID)
	assert.NotEqual(t, anonymous.ID, resolved.ID)
}

func TestCartService_AddItem_SnapshotsPrice(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "s1"}

	cart, err := cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(25000)))

	// Price change after the add must not affect the carted line
	require.NoError(t, testDB.Model(product).Update("price", decimal.NewFromInt(30000)).Error)

	cart, err = cartService.GetOrCreateCart(identity)
	require.NoError(t, err)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(25000)))
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(50000)))
}

func TestCartService_AddItem_IncrementsExistingLine(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "s1"}

	_, err := cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)

	cart, err := cartService.AddItem(identity, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_NoStockClamp(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	// Stock is 10 but the direct path does not clamp; only the merge does
	cart, err := cartService.AddItem(CartIdentity{SessionID: "s1"}, product.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, cart.Items[0].Quantity)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(CartIdentity{SessionID: "s1"}, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(CartIdentity{SessionID: "s1"}, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = cartService.AddItem(CartIdentity{SessionID: "s1"}, product.ID, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_UpdateItem(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "s1"}
	cart, err := cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)

	updated, err := cartService.UpdateItem(identity, cart.Items[0].ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Items[0].Quantity)
}

func TestCartService_UpdateItem_NotFound(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	_, err := cartService.UpdateItem(CartIdentity{SessionID: "s1"}, 9999, 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_UpdateItem_OwnershipMismatch(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	other, err := cartService.AddItem(CartIdentity{SessionID: "other"}, product.ID, 1)
	require.NoError(t, err)

	// A different session must not be able to touch the line
	_, err = cartService.UpdateItem(CartIdentity{SessionID: "mine"}, other.Items[0].ID, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "s1"}
	cart, err := cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)

	after, err := cartService.RemoveItem(identity, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, after.Items, 0)

	// Removing again reports not found without raising
	_, err = cartService.RemoveItem(identity, cart.Items[0].ID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_ClearCart_Idempotent(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	identity := CartIdentity{SessionID: "s1"}
	second := createProduct(t, testDB, "second", 1000, 5)

	_, err := cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(identity, second.ID, 1)
	require.NoError(t, err)

	cart, err := cartService.ClearCart(identity)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)

	// Clearing an empty cart succeeds
	cart, err = cartService.ClearCart(identity)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}

func TestCartService_Merge_SumsAndClampsToStock(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)

	limited := createProduct(t, testDB, "limited", 5000, 5)

	// User already has 4, anonymous adds 3, stock is 5
	_, err := cartService.AddItem(CartIdentity{UserID: &user.ID}, limited.ID, 4)
	require.NoError(t, err)
	_, err = cartService.AddItem(CartIdentity{SessionID: "anon"}, limited.ID, 3)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 5, merged.Items[0].Quantity)
}

func TestCartService_Merge_SumWithinStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(CartIdentity{UserID: &user.ID}, product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(CartIdentity{SessionID: "anon"}, product.ID, 3)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 5, merged.Items[0].Quantity)
}

func TestCartService_Merge_NewLineClampedToStock(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)

	scarce := createProduct(t, testDB, "scarce", 2000, 2)

	_, err := cartService.AddItem(CartIdentity{SessionID: "anon"}, scarce.ID, 9)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestCartService_Merge_OutOfStockLineDropped(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)

	gone := createProduct(t, testDB, "gone", 2000, 0)

	_, err := cartService.AddItem(CartIdentity{SessionID: "anon"}, gone.ID, 3)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	assert.Len(t, merged.Items, 0)
}

func TestCartService_Merge_DeletedProductSkipped(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	keep := createProduct(t, testDB, "keep", 3000, 10)

	_, err := cartService.AddItem(CartIdentity{SessionID: "anon"}, product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(CartIdentity{SessionID: "anon"}, keep.ID, 1)
	require.NoError(t, err)

	// Product vanishes between carting and login
	require.NoError(t, testDB.Delete(product).Error)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, keep.ID, merged.Items[0].ProductID)
}

func TestCartService_Merge_PreservesSnapshotPrice(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	_, err := cartService.AddItem(CartIdentity{SessionID: "anon"}, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, testDB.Model(product).Update("price", decimal.NewFromInt(99000)).Error)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.True(t, merged.Items[0].Price.Equal(decimal.NewFromInt(25000)))
}

func TestCartService_Merge_FiresOnlyOnce(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(CartIdentity{SessionID: "anon"}, product.ID, 3)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 3, merged.Items[0].Quantity)

	// A retried login finds no source; quantities must not double
	again, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, 3, again.Items[0].Quantity)
}

func TestCartService_Merge_CookieCartWinsOverSessionCart(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	other := createProduct(t, testDB, "other", 1000, 10)

	cookieCart, err := cartService.AddItem(CartIdentity{SessionID: "cookie-session"}, product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(CartIdentity{SessionID: "login-session"}, other.ID, 1)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{
		SessionID:    "login-session",
		CookieCartID: &cookieCart.ID,
	})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, product.ID, merged.Items[0].ProductID)
}

func TestCartService_Merge_HeuristicPicksRecentAnonymousCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	// Anonymous cart exists but neither cookie nor session id survived login
	_, err := cartService.AddItem(CartIdentity{SessionID: "lost-session"}, product.ID, 2)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "fresh-session"})
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestCartService_Merge_NoSourceIsNoOp(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "empty-session"})
	require.NoError(t, err)
	assert.Len(t, merged.Items, 0)
}

func TestCartService_Merge_TotalsReflectMergedLines(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	cheap := createProduct(t, testDB, "cheap", 100, 50)

	_, err := cartService.AddItem(CartIdentity{UserID: &user.ID}, product.ID, 1)
	require.NoError(t, err)
	_, err = cartService.AddItem(CartIdentity{SessionID: "anon"}, cheap.ID, 3)
	require.NoError(t, err)

	merged, err := cartService.MergeSessionCart(user.ID, CartIdentity{SessionID: "anon"})
	require.NoError(t, err)
	assert.Equal(t, 4, merged.ItemCount())
	assert.True(t, merged.Total().Equal(decimal.NewFromInt(25300)))
}
