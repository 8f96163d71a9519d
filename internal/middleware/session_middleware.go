package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Cookie names carried by every storefront browser.
const (
	SessionCookieName = "cart_session"
	CartIDCookieName  = "cart_id"

	sessionCookieMaxAge = 60 * 60 * 24 * 30 // 30 days
)

// Context keys for cart identity
const (
	SessionIDKey    = "session_id"
	CookieCartIDKey = "cookie_cart_id"
)

// CartSession guarantees every request carries an anonymous session id.
// First-time visitors get a fresh uuid cookie; the id is what ties an
// anonymous cart back to the browser across requests.
func CartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.New().String()
			c.SetCookie(SessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(SessionIDKey, sessionID)

		if raw, err := c.Cookie(CartIDCookieName); err == nil && raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
				cartID := uint(id)
				c.Set(CookieCartIDKey, cartID)
			}
		}

		c.Next()
	}
}

// GetSessionID extracts the anonymous session id from context
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// GetCookieCartID extracts the cookie-carried cart id from context
func GetCookieCartID(c *gin.Context) *uint {
	v, exists := c.Get(CookieCartIDKey)
	if !exists {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}

// SetCartIDCookie pins the anonymous cart id to the browser so the cart
// survives a session id rotation.
func SetCartIDCookie(c *gin.Context, cartID uint) {
	c.SetCookie(CartIDCookieName, strconv.FormatUint(uint64(cartID), 10), sessionCookieMaxAge, "/", "", false, true)
}

// ClearCartIDCookie drops the cart id cookie, used after a merge consumed
// the anonymous cart.
func ClearCartIDCookie(c *gin.Context) {
	c.SetCookie(CartIDCookieName, "", -1, "/", "", false, true)
}
