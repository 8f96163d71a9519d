package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/oakmart/storefront-backend/internal/errors"
	"github.com/oakmart/storefront-backend/internal/middleware"
	ws "github.com/oakmart/storefront-backend/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true, // local frontend
			"http://localhost:5173": true, // local admin dashboard
		}
		return allowedOrigins[origin]
	},
}

// AlertController serves the admin dashboard's live stock-alert stream.
type AlertController struct {
	hub *ws.Hub
}

func NewAlertController(hub *ws.Hub) *AlertController {
	return &AlertController{
		hub: hub,
	}
}

// StockAlerts upgrades the connection and streams low-stock alerts. Auth and
// role checks run in middleware; the token arrives as a query parameter since
// browsers cannot set headers on websocket dials.
// GET /api/v1/admin/alerts/ws
func (ctrl *AlertController) StockAlerts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, nil)
		return
	}

	client := &ws.Client{
		Hub:    ctrl.hub,
		Conn:   &ws.Conn{Conn: conn},
		UserID: userID,
		Send:   make(chan []byte, 256),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Stock alert stream established", map[string]interface{}{
		"user_id": userID,
	})
}
