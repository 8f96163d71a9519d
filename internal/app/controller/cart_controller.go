package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/service"
	apperrors "github.com/oakmart/storefront-backend/internal/errors"
	"github.com/oakmart/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// cartIdentity assembles the request's cart identity from the JWT (when
// present) and the session/cart cookies.
func cartIdentity(c *gin.Context) service.CartIdentity {
	identity := service.CartIdentity{
		SessionID:    middleware.GetSessionID(c),
		CookieCartID: middleware.GetCookieCartID(c),
	}
	if userID, ok := middleware.GetUserID(c); ok {
		identity.UserID = &userID
	}
	return identity
}

// pinAnonymousCart keeps the cart id cookie in sync for guests so the cart
// survives session rotation. User-owned carts need no cookie.
func pinAnonymousCart(c *gin.Context, cart *model.Cart) {
	if cart.UserID != nil {
		return
	}
	existing := middleware.GetCookieCartID(c)
	if existing == nil || *existing != cart.ID {
		middleware.SetCartIDCookie(c, cart.ID)
	}
}

func cartResponse(cart *model.Cart) gin.H {
	return gin.H{
		"cart":       cart,
		"item_count": cart.ItemCount(),
		"total":      cart.Total(),
	}
}

// GetCart returns the cart for the current user or session
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, err := ctrl.cartService.GetOrCreateCart(cartIdentity(c))
	if err != nil {
		log.Error("Failed to fetch cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "fetch cart")
		return
	}

	pinAnonymousCart(c, cart)
	c.JSON(http.StatusOK, cartResponse(cart))
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Invalid cart item data")
		return
	}

	cart, err := ctrl.cartService.AddItem(cartIdentity(c), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be positive")
		default:
			log.Error("Failed to add item to cart", err, map[string]interface{}{
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart add")
		}
		return
	}

	pinAnonymousCart(c, cart)
	c.JSON(http.StatusCreated, cartResponse(cart))
}

// UpdateItem sets a cart line's quantity
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid cart item ID")
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be positive")
		return
	}

	cart, err := ctrl.cartService.UpdateItem(cartIdentity(c), uint(itemID), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartItemNotFound):
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Cart item not found")
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be positive")
		default:
			log.Error("Failed to update cart item", err, map[string]interface{}{
				"cart_item_id": itemID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart update")
		}
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

// RemoveItem deletes a cart line
// DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid cart item ID")
		return
	}

	cart, err := ctrl.cartService.RemoveItem(cartIdentity(c), uint(itemID))
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Cart item not found")
			return
		}
		log.Error("Failed to remove cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart delete")
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

// ClearCart removes every line from the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, err := ctrl.cartService.ClearCart(cartIdentity(c))
	if err != nil {
		log.Error("Failed to clear cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart delete")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"cart":    cart,
	})
}
