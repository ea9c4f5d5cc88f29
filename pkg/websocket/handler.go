package websocket

import (
	"net/http"
	"time"

	"ridepulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UpgraderConfig tunes the HTTP-to-websocket upgrade without coupling this
// package to the application config loader.
type UpgraderConfig struct {
	ReadBufferSize    int
	WriteBufferSize   int
	HandshakeTimeout  time.Duration
	EnableCompression bool
	AllowedOrigins    []string
}

// Handler upgrades authenticated HTTP requests into hub clients.
type Handler struct {
	hub      *Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, log *logger.Logger, cfg UpgraderConfig) *Handler {
	return &Handler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin:       originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker allows every origin when the list is empty or contains "*",
// otherwise it requires an exact match on the Origin header.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = true
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		return set[r.Header.Get("Origin")]
	}
}

// HandleWebSocket expects the auth middleware to have stored user_id and
// user_type in the gin context.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	accountHex, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	accountID, err := primitive.ObjectIDFromHex(accountHex.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid account ID"})
		return
	}

	role := RoleRider
	if userType, ok := c.Get("user_type"); ok {
		if s, ok := userType.(string); ok && s == RoleCaptain {
			role = RoleCaptain
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, accountID, role, uuid.NewString())
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
