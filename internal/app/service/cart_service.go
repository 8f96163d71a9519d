package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	apperrors "github.com/oakmart/storefront-backend/internal/errors"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
)

// anonymousCartWindow bounds the heuristic fallback used during merge source
// resolution: only ownerless carts created within this window are considered.
const anonymousCartWindow = 60 * time.Minute

// CartIdentity is the ambient identity of a cart request: an authenticated
// user id, an anonymous session id, and/or a cookie-carried cart id. The
// facade accepts whichever subset is present.
type CartIdentity struct {
	UserID       *uint
	SessionID    string
	CookieCartID *uint
}

type CartService interface {
	GetOrCreateCart(identity CartIdentity) (*model.Cart, error)
	AddItem(identity CartIdentity, productID uint, quantity int) (*model.Cart, error)
	UpdateItem(identity CartIdentity, cartItemID uint, quantity int) (*model.Cart, error)
	RemoveItem(identity CartIdentity, cartItemID uint) (*model.Cart, error)
	ClearCart(identity CartIdentity) (*model.Cart, error)

	// MergeSessionCart folds the anonymous cart belonging to identity into
	// the user's cart. Fired once, synchronously, when a session becomes
	// authenticated.
	MergeSessionCart(userID uint, identity CartIdentity) (*model.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	db          *gorm.DB
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	db *gorm.DB,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		db:          db,
	}
}

// GetOrCreateCart resolves the cart that applies to the given identity,
// creating one lazily on first access. Resolution order: authenticated user,
// cookie-carried ownerless cart, session-tagged ownerless cart.
func (s *cartService) GetOrCreateCart(identity CartIdentity) (*model.Cart, error) {
	if identity.UserID != nil {
		cart, err := s.cartRepo.FindByUserID(*identity.UserID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.createCart(identity)
	}

	if identity.CookieCartID != nil {
		cart, err := s.cartRepo.FindByID(*identity.CookieCartID)
		if err == nil && cart.UserID == nil {
			// Keep the cart addressable after a session id rotation.
			if identity.SessionID != "" && (cart.SessionID == nil || *cart.SessionID != identity.SessionID) {
				if err := s.cartRepo.UpdateSessionID(cart.ID, identity.SessionID); err != nil {
					logger.Warn("Failed to re-tag cart session id", map[string]interface{}{
						"cart_id": cart.ID,
						"error":   err.Error(),
					})
				} else {
					sid := identity.SessionID
					cart.SessionID = &sid
				}
			}
			return cart, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Cookie points at a consumed or claimed cart; fall through.
	}

	if identity.SessionID != "" {
		cart, err := s.cartRepo.FindBySessionID(identity.SessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return s.createCart(identity)
}

func (s *cartService) createCart(identity CartIdentity) (*model.Cart, error) {
	cart := &model.Cart{UserID: identity.UserID}
	if identity.SessionID != "" {
		sid := identity.SessionID
		cart.SessionID = &sid
	}

	if cart.UserID == nil && cart.SessionID == nil {
		// Defensive: should not occur, every request carries at least a
		// session cookie. The cart would be unreachable on the next request.
		logger.Warn("Creating orphaned anonymous cart without any identity", nil)
	}

	if err := s.cartRepo.CreateCart(cart); err != nil {
		// A concurrent first request for the same identity may have created
		// the cart already; treat a unique violation as "re-fetch".
		if apperrors.IsUniqueViolation(err) {
			logger.Debug("Cart create lost find-or-create race, re-fetching", map[string]interface{}{
				"user_id":    identity.UserID,
				"session_id": identity.SessionID,
			})
			if identity.UserID != nil {
				return s.cartRepo.FindByUserID(*identity.UserID)
			}
			return s.cartRepo.FindBySessionID(identity.SessionID)
		}
		logger.Error("Failed to create cart", err, map[string]interface{}{
			"user_id":    identity.UserID,
			"session_id": identity.SessionID,
		})
		return nil, err
	}

	logger.Info("Cart created", map[string]interface{}{
		"cart_id":    cart.ID,
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
	})
	cart.Items = []model.CartItem{}
	return cart, nil
}

// AddItem adds a product to the identity's cart. Adding an already-present
// product increments the existing line instead of creating a duplicate; the
// unit price is snapshotted from the product's current price on first add.
// No live stock clamp is applied on this path.
func (s *cartService) AddItem(identity CartIdentity, productID uint, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"product_id": productID,
		"quantity":   quantity,
	})

	cart, err := s.GetOrCreateCart(identity)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"cart_id":    cart.ID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	existing, err := s.cartRepo.FindItem(cart.ID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"cart_id":    cart.ID,
			"product_id": productID,
		})
		return nil, err
	}

	if existing != nil {
		existing.Quantity += quantity
		if err := s.cartRepo.UpdateItem(existing); err != nil {
			return nil, err
		}
	} else {
		item := &model.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price,
		}
		if err := s.cartRepo.CreateItem(item); err != nil {
			return nil, err
		}
	}

	return s.cartRepo.FindByID(cart.ID)
}

// UpdateItem sets a cart line's quantity to an absolute value. No stock clamp
// is applied on this path.
func (s *cartService) UpdateItem(identity CartIdentity, cartItemID uint, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, item, err := s.resolveOwnedItem(identity, cartItemID)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	if err := s.cartRepo.UpdateItem(item); err != nil {
		return nil, err
	}

	logger.Info("Cart item updated", map[string]interface{}{
		"cart_id":      cart.ID,
		"cart_item_id": cartItemID,
		"quantity":     quantity,
	})
	return s.cartRepo.FindByID(cart.ID)
}

// RemoveItem deletes a cart line. Removing a nonexistent line reports
// ErrCartItemNotFound without raising.
func (s *cartService) RemoveItem(identity CartIdentity, cartItemID uint) (*model.Cart, error) {
	cart, item, err := s.resolveOwnedItem(identity, cartItemID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(item.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"cart_id":      cart.ID,
		"cart_item_id": cartItemID,
	})
	return s.cartRepo.FindByID(cart.ID)
}

// ClearCart deletes all lines in the identity's cart. Clearing an already
// empty cart succeeds.
func (s *cartService) ClearCart(identity CartIdentity) (*model.Cart, error) {
	cart, err := s.GetOrCreateCart(identity)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItemsByCartID(cart.ID); err != nil {
		return nil, err
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return s.cartRepo.FindByID(cart.ID)
}

// resolveOwnedItem loads a cart item and verifies it belongs to the
// identity's cart. Ownership mismatch is reported as not-found.
func (s *cartService) resolveOwnedItem(identity CartIdentity, cartItemID uint) (*model.Cart, *model.CartItem, error) {
	cart, err := s.GetOrCreateCart(identity)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.cartRepo.FindItemByID(cartItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCartItemNotFound
		}
		return nil, nil, err
	}

	if item.CartID != cart.ID {
		logger.Warn("Cart item access denied: ownership mismatch", map[string]interface{}{
			"cart_id":      cart.ID,
			"cart_item_id": cartItemID,
			"owner_cart":   item.CartID,
		})
		return nil, nil, ErrCartItemNotFound
	}

	return cart, item, nil
}

// findSessionCartForMigration resolves the merge source in strict priority
// order: cookie-carried cart id, then session-tagged ownerless cart, then a
// best-effort scan for a recent ownerless cart with items. Returns nil when
// no eligible source exists.
func (s *cartService) findSessionCartForMigration(identity CartIdentity) (*model.Cart, error) {
	if identity.CookieCartID != nil {
		cart, err := s.cartRepo.FindByID(*identity.CookieCartID)
		if err == nil && cart.UserID == nil {
			return cart, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if identity.SessionID != "" {
		cart, err := s.cartRepo.FindBySessionID(identity.SessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	cart, err := s.cartRepo.FindRecentAnonymous(time.Now().Add(-anonymousCartWindow))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Ambiguous across concurrent anonymous visitors; logged so operators can
	// monitor how often cookie/session propagation failed to survive login.
	logger.Warn("Merge source resolved via recent-anonymous-cart heuristic", map[string]interface{}{
		"cart_id":         cart.ID,
		"cart_created_at": cart.CreatedAt,
	})
	return cart, nil
}

// MergeSessionCart folds the anonymous cart into the user's cart in a single
// transaction. Per line: quantities are additive and clamped to the product's
// current stock; lines for deleted products are skipped; new lines that would
// clamp to zero are dropped. The source cart is tombstoned in the same
// transaction so a retried login finds no eligible source.
func (s *cartService) MergeSessionCart(userID uint, identity CartIdentity) (*model.Cart, error) {
	dest, err := s.GetOrCreateCart(CartIdentity{UserID: &userID})
	if err != nil {
		return nil, err
	}

	source, err := s.findSessionCartForMigration(identity)
	if err != nil {
		return nil, err
	}
	if source == nil || source.ID == dest.ID {
		return dest, nil
	}

	logger.Info("Merging anonymous cart into user cart", map[string]interface{}{
		"user_id":     userID,
		"source_cart": source.ID,
		"dest_cart":   dest.ID,
		"source_len":  len(source.Items),
	})

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during cart merge, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"source_cart": source.ID,
				"dest_cart":   dest.ID,
			})
		}
	}()

	for _, srcItem := range source.Items {
		var product model.Product
		if err := tx.First(&product, srcItem.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Product vanished since it was carted; nothing to migrate.
				logger.Debug("Skipping cart line for deleted product", map[string]interface{}{
					"source_cart": source.ID,
					"product_id":  srcItem.ProductID,
				})
				continue
			}
			tx.Rollback()
			return nil, err
		}

		var destItem model.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", dest.ID, srcItem.ProductID).
			First(&destItem).Error
		switch {
		case err == nil:
			combined := destItem.Quantity + srcItem.Quantity
			if combined > product.StockQuantity {
				combined = product.StockQuantity
			}
			destItem.Quantity = combined
			if err := tx.Save(&destItem).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			quantityToAdd := srcItem.Quantity
			if quantityToAdd > product.StockQuantity {
				quantityToAdd = product.StockQuantity
			}
			if quantityToAdd <= 0 {
				// Fully out of stock: the line is dropped, not carried over
				// as a zero-quantity row.
				continue
			}
			newItem := model.CartItem{
				CartID:    dest.ID,
				ProductID: srcItem.ProductID,
				Quantity:  quantityToAdd,
				Price:     srcItem.Price,
			}
			if err := tx.Create(&newItem).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		default:
			tx.Rollback()
			return nil, err
		}
	}

	// Claim-and-invalidate: tombstone the source in the same unit of work so
	// the merge fires at most once per login transition.
	if err := tx.Delete(&model.Cart{}, source.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit cart merge", err, map[string]interface{}{
			"source_cart": source.ID,
			"dest_cart":   dest.ID,
		})
		return nil, err
	}

	logger.Info("Cart merge completed", map[string]interface{}{
		"user_id":     userID,
		"source_cart": source.ID,
		"dest_cart":   dest.ID,
	})
	return s.cartRepo.FindByID(dest.ID)
}
